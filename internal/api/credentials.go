package api

import (
	"net/http"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AddCredentialRequest provisions a single credential.
type AddCredentialRequest struct {
	ServiceID string         `json:"service_id" binding:"required"`
	Payload   models.Payload `json:"payload" binding:"required"`
}

// AddCredential adds one credential to a service's pool.
// POST /api/credentials
func (h *Handlers) AddCredential(c *gin.Context) {
	var req AddCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	credential, err := h.Inventory.AddCredential(c.Request.Context(), req.ServiceID, req.Payload)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(credential))
}

// ImportCredentialsRequest carries bulk-import text, one
// identifier:secret pair per line.
type ImportCredentialsRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// ImportCredentials bulk-adds credentials from pasted text.
// POST /api/credentials/import
func (h *Handlers) ImportCredentials(c *gin.Context) {
	var req ImportCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	credentials, err := h.Inventory.BulkImport(c.Request.Context(), req.ServiceID, req.Text)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(gin.H{
		"imported":    len(credentials),
		"credentials": credentials,
	}))
}

// ListAvailableCredentials lists a service's unassigned pool.
// GET /api/credentials/available?service_id=
func (h *Handlers) ListAvailableCredentials(c *gin.Context) {
	serviceID := c.Query("service_id")
	if serviceID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "service_id is required")
		return
	}

	credentials, err := h.Inventory.ListAvailable(c.Request.Context(), serviceID)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"count":       len(credentials),
		"credentials": credentials,
	})
}
