package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadbroker/broker/internal/ingest"
	"github.com/leadbroker/broker/internal/webhookauth"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// apiKeyHeader carries the portal secret (SPEC_FULL.md §10), replacing a
// JSON body field so the full request body is free to be the portal's
// arbitrary lead payload.
const apiKeyHeader = "x-api-key"

// idempotencyKeyHeader, when present, guards against an HTTP-level retry
// double-submitting an already-accepted lead (SPEC_FULL.md §9) — a
// narrower, transport-level guard distinct from C4's email/phone dedup
// window.
const idempotencyKeyHeader = "X-Idempotency-Key"

// PipelineFactory builds a Pipeline scoped to one portal's field-mapping
// override, or returns a cached one. Kept as a function type so callers
// can choose eager construction or a mapper cache without this package
// caring which.
type PipelineFactory func(portalID string) *ingest.Pipeline

// IdempotencyStore records which idempotency key produced which lead, so
// a repeated request with the same key short-circuits before re-running
// the pipeline.
type IdempotencyStore interface {
	FindIdempotencyKey(ctx context.Context, key string) (leadID string, found bool, err error)
	SaveIdempotencyKey(ctx context.Context, key, leadID string) error
}

// WebhookHandler implements POST /api/webhooks/:portal_code.
type WebhookHandler struct {
	auth             *webhookauth.Authenticator
	pipeline         PipelineFactory
	idem             IdempotencyStore // nil disables the idempotency-key guard
	pipelineDeadline time.Duration    // DISTRIBUTION_RETRY_MAX's sibling control, PIPELINE_DEADLINE_MS; 0 disables
	log              *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(auth *webhookauth.Authenticator, pipeline PipelineFactory, idem IdempotencyStore, pipelineDeadline time.Duration, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{auth: auth, pipeline: pipeline, idem: idem, pipelineDeadline: pipelineDeadline, log: log}
}

// Handle authenticates the portal, runs the ingestion pipeline, and maps
// the outcome to an HTTP response per spec.md §4.1/§4.3/§4.4/§4.6 and
// SPEC_FULL.md §10's wire contract.
func (h *WebhookHandler) Handle(c *gin.Context) {
	portalCode := c.Param("portal_code")
	secret := c.GetHeader(apiKeyHeader)

	ctx := c.Request.Context()
	if h.pipelineDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.pipelineDeadline)
		defer cancel()
	}

	po, err := h.auth.Authenticate(ctx, portalCode, secret)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"malformed request body"}})
		return
	}

	idemKey := c.GetHeader(idempotencyKeyHeader)
	if idemKey != "" && h.idem != nil {
		if leadID, found, err := h.idem.FindIdempotencyKey(ctx, idemKey); err != nil {
			h.log.Warn("idempotency key lookup failed", zap.Error(err))
		} else if found {
			c.JSON(http.StatusOK, gin.H{"success": true, "lead_id": leadID, "duplicate": true})
			return
		}
	}

	pipeline := h.pipeline(po.ID)
	outcome, err := pipeline.Receive(ctx, po, payload)

	if idemKey != "" && h.idem != nil && outcome != nil && outcome.LeadID != "" {
		if saveErr := h.idem.SaveIdempotencyKey(ctx, idemKey, outcome.LeadID); saveErr != nil {
			h.log.Warn("idempotency key save failed", zap.Error(saveErr))
		}
	}

	writeOutcome(c, outcome, err)
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case broker_errors.Is(err, broker_errors.ErrPortalUnknown):
		c.JSON(http.StatusNotFound, gin.H{"error": "portal_unknown"})
	case broker_errors.Is(err, broker_errors.ErrPortalInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "portal_inactive"})
	case broker_errors.Is(err, broker_errors.ErrPortalAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "portal_auth_failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
	}
}

func writeOutcome(c *gin.Context, outcome *ingest.Outcome, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "lead_id": outcome.LeadID})
	case broker_errors.Is(err, broker_errors.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"errors": outcome.Violations})
	case broker_errors.Is(err, broker_errors.ErrDuplicateSuppressed):
		c.JSON(http.StatusOK, gin.H{"success": true, "lead_id": outcome.DuplicateOf, "duplicate": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
	}
}
