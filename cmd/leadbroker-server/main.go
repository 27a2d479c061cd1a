// Command leadbroker-server runs the webhook-reception HTTP service:
// C1 through C10 wired end to end, serving inbound portal webhooks and
// mobile accept/reject requests until an interrupt signal arrives, at
// which point it drains in-flight requests before exiting (SPEC_FULL.md
// §9 graceful shutdown).
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/batch"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/config"
	"github.com/leadbroker/broker/internal/dedup"
	"github.com/leadbroker/broker/internal/eligibility"
	"github.com/leadbroker/broker/internal/httpapi"
	"github.com/leadbroker/broker/internal/ingest"
	"github.com/leadbroker/broker/internal/lifecycle"
	"github.com/leadbroker/broker/internal/logging"
	"github.com/leadbroker/broker/internal/metrics"
	"github.com/leadbroker/broker/internal/notify"
	"github.com/leadbroker/broker/internal/schema"
	"github.com/leadbroker/broker/internal/store"
	"github.com/leadbroker/broker/internal/webhookauth"
	"github.com/leadbroker/broker/pkg/clock"
	"github.com/leadbroker/broker/pkg/idgen"
)

// redisPinger adapts *redis.Client's *redis.StatusCmd-returning Ping to
// httpapi.Pinger's plain error signature.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Development: cfg.Env == "development", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := store.Migrate(sqlDB); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	st := store.New(pool)
	cursors := store.NewRedisCursorStore(redisClient)
	dedupCache := store.NewRedisDedupCache(redisClient)
	clk := clock.NewReal()
	ids := idgen.New()

	reg := prometheus.NewRegistry()
	_ = metrics.New(reg)

	var ops notify.OpsNotifier
	if cfg.SlackBotToken != "" {
		ops = notify.NewSlackOpsNotifier(slack.New(cfg.SlackBotToken), cfg.SlackOpsChannel)
	}

	auth := webhookauth.New(st)
	deduper := dedup.New(st, dedupCache, clk, cfg.DedupWindow)
	resolver := eligibility.New(st)
	capFilter := capacity.New(st, clk)
	coordinator := assign.New(cursors, st, st, ids, clk, cfg.DistributionRetryMax)
	controller := lifecycle.New(st, st, st, st, lifecycle.NewCandidateResolver(resolver, capFilter), coordinator, st, ids, clk)
	distributor := batch.New(st, st, st, resolver, capFilter, coordinator, nil, ops)

	pipelineDeadline := time.Duration(cfg.PipelineDeadlineMs) * time.Millisecond

	pipelineFactory := buildPipelineFactory(auth, deduper, st, resolver, capFilter, coordinator, st, nil, ops, ids, clk)
	webhookHandler := httpapi.NewWebhookHandler(auth, pipelineFactory, st, pipelineDeadline, log)
	lifecycleHandler := httpapi.NewLifecycleHandler(controller)
	adminHandler := httpapi.NewAdminHandler(distributor, controller)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:     log,
		MetricsReg: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Webhook:    webhookHandler,
		Lifecycle:  lifecycleHandler,
		Admin:      adminHandler,
		Postgres:   pool,
		Redis:      redisPinger{client: redisClient},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildPipelineFactory returns a per-request Pipeline, building a fresh
// schema mapper from the default synonym table each time. portalID is not
// consulted, so a portal's MappingOverride is not applied to its payloads.
func buildPipelineFactory(
	auth *webhookauth.Authenticator,
	deduper *dedup.Deduplicator,
	leads *store.Store,
	resolver *eligibility.Resolver,
	capFilter *capacity.Filter,
	coordinator *assign.Coordinator,
	auditLog *store.Store,
	assignedNotifier notify.AssignmentNotifier,
	ops notify.OpsNotifier,
	ids idgen.Generator,
	clk clock.Clock,
) httpapi.PipelineFactory {
	return func(portalID string) *ingest.Pipeline {
		mapper := schema.NewMapper(nil)
		return ingest.New(auth, mapper, deduper, leads, resolver, capFilter, coordinator, auditLog, assignedNotifier, ops, ids, clk)
	}
}
