package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrplatform/go-notification-engine/internal/middleware"
)

// NewRouter assembles the HTTP API
func NewRouter(
	mode string,
	scheduled *ScheduledHandler,
	recurring *RecurringHandler,
	notifications *NotificationHandler,
	rateLimiter *middleware.ClientRateLimiter,
) *gin.Engine {
	gin.SetMode(mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		scheduledRoutes := v1.Group("/scheduled")
		{
			scheduledRoutes.POST("", scheduled.Create)
			scheduledRoutes.GET("", scheduled.List)
			scheduledRoutes.GET("/:id", scheduled.Get)
			scheduledRoutes.DELETE("/:id", scheduled.Cancel)
		}

		recurringRoutes := v1.Group("/recurring")
		{
			recurringRoutes.POST("", recurring.Create)
			recurringRoutes.GET("", recurring.List)
			recurringRoutes.GET("/:id", recurring.Get)
			recurringRoutes.PATCH("/:id/active", recurring.SetActive)
		}

		notificationRoutes := v1.Group("/notifications")
		{
			notificationRoutes.POST("/send", notifications.SendNow)
			notificationRoutes.GET("", notifications.List)
			notificationRoutes.POST("/:id/read", notifications.MarkRead)
		}
	}

	return router
}
