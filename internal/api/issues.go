package api

import (
	"net/http"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"

	"github.com/gin-gonic/gin"
)

// ListIssues lists stock issues for the operator console, optionally
// filtered by status.
// GET /api/fulfillment/issues?status=
func (h *Handlers) ListIssues(c *gin.Context) {
	issues, err := h.Tracker.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"count":  len(issues),
		"issues": issues,
	})
}

// ResolveIssueRequest carries the operator-supplied credential
// payload that fulfills a shortage.
type ResolveIssueRequest struct {
	Payload models.Payload `json:"payload" binding:"required"`
}

// ResolveIssue fulfills a pending stock issue with a new credential.
// POST /api/fulfillment/issues/:id/resolve
func (h *Handlers) ResolveIssue(c *gin.Context) {
	issueID := c.Param("id")

	var req ResolveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	credential, err := h.Allocator.ResolveWithNewCredential(c.Request.Context(), issueID, req.Payload)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, credential)
}

// CancelIssue declines a pending stock issue.
// POST /api/fulfillment/issues/:id/cancel
func (h *Handlers) CancelIssue(c *gin.Context) {
	if err := h.Tracker.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{"status": models.IssueStatusCancelled})
}

// Reconcile runs one manual sweep: fallback replay plus subscription
// reconciliation.
// POST /api/fulfillment/reconcile
func (h *Handlers) Reconcile(c *gin.Context) {
	replayed, attached, err := h.Synchronizer.Sweep(c.Request.Context())
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"replayed": replayed,
		"attached": attached,
	})
}
