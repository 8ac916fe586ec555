package api

import (
	"errors"
	"net/http"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"
	"fulfillment-api/internal/store"
	"fulfillment-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// AssignRequest is the checkout backend's allocation request.
type AssignRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	OrderID   string `json:"order_id"`
}

// AssignResponse carries either the bound credential or the pending
// shortage the order now waits on.
type AssignResponse struct {
	Assigned   bool               `json:"assigned"`
	Credential *models.Credential `json:"credential,omitempty"`
	IssueID    string             `json:"issue_id,omitempty"`
	Status     string             `json:"status"`
}

// Assign allocates one credential for a purchase.
// POST /api/fulfillment/assign
// An empty pool is a normal outcome: the order proceeds as awaiting
// fulfillment with a logged stock issue, not an error.
func (h *Handlers) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	credential, err := h.Allocator.Assign(c.Request.Context(), req.ServiceID, req.UserID, req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNoStock) {
			resp := AssignResponse{
				Assigned: false,
				Status:   "awaiting_fulfillment",
			}
			if req.OrderID != "" {
				if issue, issueErr := h.Tracker.PendingForOrder(c.Request.Context(), req.OrderID); issueErr == nil {
					resp.IssueID = issue.ID
				} else {
					logging.Errorf("Failed to look up issue for order %s: %v", req.OrderID, issueErr)
				}
			}
			response.SuccessJSON(c, resp)
			return
		}
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, AssignResponse{
		Assigned:   true,
		Credential: credential,
		Status:     "assigned",
	})
}
