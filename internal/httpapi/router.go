// Package httpapi implements the HTTP transport (SPEC_FULL.md §7.5,
// §10) over github.com/gin-gonic/gin: the webhook intake route, the
// mobile accept/reject routes, and the operational /healthz and
// /metrics endpoints.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger exercises a live dependency so /healthz can surface an outage
// before it takes down a webhook request (SPEC_FULL.md §9).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router needs to build handlers.
type Deps struct {
	Logger     *zap.Logger
	MetricsReg http.Handler // promhttp.HandlerFor(reg, ...), built by the caller
	Webhook    *WebhookHandler
	Lifecycle  *LifecycleHandler
	Admin      *AdminHandler
	Postgres   Pinger
	Redis      Pinger
}

// NewRouter builds the gin engine: health, metrics, the portal webhook,
// mobile accept/reject by assignment id, and (when Admin is set) the admin
// distribute/reassign routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))

	r.GET("/healthz", func(c *gin.Context) { healthz(c, deps) })
	if deps.MetricsReg != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsReg))
	} else {
		r.GET("/metrics", gin.WrapH(defaultMetricsHandler()))
	}

	r.POST("/api/webhooks/:portal_code", deps.Webhook.Handle)

	mobile := r.Group("/api/mobile")
	mobile.PUT("/assignments/:assignment_id/accept", deps.Lifecycle.Accept)
	mobile.PUT("/assignments/:assignment_id/reject", deps.Lifecycle.Reject)

	if deps.Admin != nil {
		admin := r.Group("/admin")
		admin.POST("/leads/:id/distribute", deps.Admin.Distribute)
		admin.POST("/leads/batch-distribute", deps.Admin.BatchDistribute)
		admin.PUT("/leads/:id/reassign", deps.Admin.Reassign)
	}

	return r
}

// healthz exercises the live Postgres pool and Redis client the pipeline
// runs against, rather than reporting unconditional liveness.
func healthz(c *gin.Context, deps Deps) {
	ctx := c.Request.Context()
	status := gin.H{}
	ok := true

	if deps.Postgres != nil {
		if err := deps.Postgres.Ping(ctx); err != nil {
			ok = false
			status["postgres"] = err.Error()
		} else {
			status["postgres"] = "ok"
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Ping(ctx); err != nil {
			ok = false
			status["redis"] = err.Error()
		} else {
			status["redis"] = "ok"
		}
	}

	if !ok {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func defaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
