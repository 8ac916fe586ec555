package api

import (
	"net/http"

	"fulfillment-api/internal/response"

	"github.com/gin-gonic/gin"
)

// RegisterSubscriptionRequest is the purchase flow's subscription
// record. credential_id stays empty when the purchase hit an empty
// pool.
type RegisterSubscriptionRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	ServiceID      string `json:"service_id" binding:"required"`
	DurationMonths int    `json:"duration_months"`
	CredentialID   string `json:"credential_id"`
}

// RegisterSubscription records a purchased entitlement window.
// POST /api/subscriptions
func (h *Handlers) RegisterSubscription(c *gin.Context) {
	var req RegisterSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	subscription, err := h.Synchronizer.Register(c.Request.Context(),
		req.UserID, req.ServiceID, req.DurationMonths, req.CredentialID)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(subscription))
}

// GetSubscription returns one subscription with its read-derived
// effective status.
// GET /api/subscriptions/:id
func (h *Handlers) GetSubscription(c *gin.Context) {
	subscription, err := h.Synchronizer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"subscription":     subscription,
		"effective_status": subscription.EffectiveStatus(),
	})
}
