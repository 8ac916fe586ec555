package response

import (
	"errors"
	"net/http"

	"fulfillment-api/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response
func Error(statusCode int, message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(statusCode, message))
}

// DomainErrorJSON maps the storage error taxonomy onto HTTP outcomes
// so handlers never leak a generic failure to the UI.
func DomainErrorJSON(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrStoreUnavailable):
		ErrorJSON(c, http.StatusServiceUnavailable, "store unavailable, please retry")
	case errors.Is(err, store.ErrInvalidTransition):
		ErrorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicateAllocation):
		ErrorJSON(c, http.StatusInternalServerError, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		ErrorJSON(c, http.StatusNotFound, "record not found")
	default:
		ErrorJSON(c, http.StatusBadRequest, err.Error())
	}
}
