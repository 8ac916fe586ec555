package api

import (
	"fulfillment-api/internal/middleware"
	"fulfillment-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the wired services behind the HTTP surface.
type Handlers struct {
	Inventory    *services.Inventory
	Allocator    *services.Allocator
	Tracker      *services.IssueTracker
	Synchronizer *services.Synchronizer
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	{
		// Purchase/order flow entry point (called by the checkout
		// backend, no operator auth)
		fulfillment := api.Group("/fulfillment")
		{
			fulfillment.POST("/assign", h.Assign)
		}

		// Operator console: shortage lifecycle and sweeps
		ops := api.Group("/fulfillment")
		ops.Use(middleware.AdminAuthMiddleware())
		{
			ops.GET("/issues", h.ListIssues)
			ops.POST("/issues/:id/resolve", h.ResolveIssue)
			ops.POST("/issues/:id/cancel", h.CancelIssue)
			ops.POST("/reconcile", h.Reconcile)
		}

		// Operator console: raw credential pool
		credentials := api.Group("/credentials")
		credentials.Use(middleware.AdminAuthMiddleware())
		{
			credentials.POST("", h.AddCredential)
			credentials.POST("/import", h.ImportCredentials)
			credentials.GET("/available", h.ListAvailableCredentials)
		}

		// Subscriptions (purchase flow collaborator)
		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("", h.RegisterSubscription)
			subscriptions.GET("/:id", h.GetSubscription)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fulfillment-service",
		})
	})
}
