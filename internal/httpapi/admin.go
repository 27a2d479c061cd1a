package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadbroker/broker/internal/batch"
	"github.com/leadbroker/broker/internal/lifecycle"
	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

type reassignBody struct {
	AgencyID string `json:"agency_id" binding:"required"`
}

type batchDistributeBody struct {
	Limit int `json:"limit"`
}

// AdminHandler implements the admin-triggered distribution and
// reassignment routes (SPEC_FULL.md §10): a manual escape hatch onto the
// same coordinator/distributor machinery the webhook and cron sweep use,
// for an operator working a stuck lead or agency outage.
type AdminHandler struct {
	distributor *batch.Distributor
	controller  *lifecycle.Controller
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(distributor *batch.Distributor, controller *lifecycle.Controller) *AdminHandler {
	return &AdminHandler{distributor: distributor, controller: controller}
}

// Distribute implements POST /admin/leads/:id/distribute.
func (h *AdminHandler) Distribute(c *gin.Context) {
	leadID := c.Param("id")

	res, err := h.distributor.DistributeOne(c.Request.Context(), leadID)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempted": res.Attempted, "assigned": res.Assigned, "skipped": res.Skipped})
}

// BatchDistribute implements POST /admin/leads/batch-distribute {limit}.
func (h *AdminHandler) BatchDistribute(c *gin.Context) {
	var body batchDistributeBody
	_ = c.ShouldBindJSON(&body)

	res := h.distributor.RunOnce(c.Request.Context(), body.Limit)
	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"attempted": res.Attempted,
		"assigned":  res.Assigned,
		"skipped":   res.Skipped,
		"errors":    errorStrings(res.Errors),
	})
}

// Reassign implements PUT /admin/leads/:id/reassign {agency_id}.
func (h *AdminHandler) Reassign(c *gin.Context) {
	leadID := c.Param("id")

	var body reassignBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"agency_id is required"}})
		return
	}

	if err := h.controller.Reassign(c.Request.Context(), leadID, body.AgencyID); err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead_id": leadID, "agency_id": body.AgencyID})
}

func writeAdminError(c *gin.Context, err error) {
	switch {
	case broker_errors.Is(err, broker_errors.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "lead_not_found"})
	case broker_errors.Is(err, broker_errors.ErrNoEligibleAfterExclusion), broker_errors.Is(err, broker_errors.ErrNoEligibleAgency):
		c.JSON(http.StatusConflict, gin.H{"error": "no_eligible_agency"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
	}
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
