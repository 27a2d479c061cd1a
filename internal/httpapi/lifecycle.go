package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadbroker/broker/internal/lifecycle"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// agencyAuthHeader is the header mobile clients present their agency
// identity under. Agency-side session authentication is an admin-surface
// concern out of scope here (spec.md §1 Non-goals); this handler trusts
// whatever upstream middleware already validated and populated it with.
const agencyAuthHeader = "X-Agency-ID"

type rejectBody struct {
	Reason string `json:"reason"`
}

// LifecycleHandler implements the mobile accept/reject routes.
type LifecycleHandler struct {
	controller *lifecycle.Controller
}

// NewLifecycleHandler creates a LifecycleHandler.
func NewLifecycleHandler(controller *lifecycle.Controller) *LifecycleHandler {
	return &LifecycleHandler{controller: controller}
}

// Accept implements PUT /api/mobile/assignments/:assignment_id/accept.
func (h *LifecycleHandler) Accept(c *gin.Context) {
	assignmentID := c.Param("assignment_id")
	agencyID := c.GetHeader(agencyAuthHeader)

	err := h.controller.Accept(c.Request.Context(), assignmentID, agencyID)
	writeLifecycleResult(c, err)
}

// Reject implements PUT /api/mobile/assignments/:assignment_id/reject.
func (h *LifecycleHandler) Reject(c *gin.Context) {
	assignmentID := c.Param("assignment_id")
	agencyID := c.GetHeader(agencyAuthHeader)

	var body rejectBody
	_ = c.ShouldBindJSON(&body)

	err := h.controller.Reject(c.Request.Context(), assignmentID, agencyID, body.Reason)
	writeLifecycleResult(c, err)
}

func writeLifecycleResult(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case broker_errors.Is(err, broker_errors.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
	case broker_errors.Is(err, broker_errors.ErrAgencyMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "assignment does not belong to this agency"})
	case broker_errors.Is(err, broker_errors.ErrAssignmentNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "assignment is not pending"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
