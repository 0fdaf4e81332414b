// README: HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"localpro/internal/http/handlers"
	"localpro/internal/http/middleware"
)

func registerRoutes(r *gin.Engine, deps ServerDeps) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier), middleware.RateLimit(deps.RatePerMinute, deps.Log))

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.GET("/rates", pricingHandler.Rates)
	api.GET("/quote", pricingHandler.Quote)

	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	streamHandler := handlers.NewStreamHandler(deps.Booking, deps.Feed, deps.Log)
	reviewHandler := handlers.NewReviewHandler(deps.Review)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/stream", streamHandler.Stream)
	api.GET("/bookings/code/:code", bookingHandler.GetByCode)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.GET("/bookings/:id/events", bookingHandler.Events)
	api.POST("/bookings/:id/transition", bookingHandler.Transition)
	api.POST("/bookings/:id/accept", bookingHandler.Accept)
	api.POST("/bookings/:id/reject", bookingHandler.Reject)
	api.POST("/bookings/:id/start", bookingHandler.Start)
	api.POST("/bookings/:id/complete", bookingHandler.Complete)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/review", reviewHandler.Create)

	earningsHandler := handlers.NewEarningsHandler(deps.Earnings)
	api.GET("/providers/me/earnings", earningsHandler.Mine)
	api.GET("/providers/:id/reviews", reviewHandler.ListByProvider)

	kycHandler := handlers.NewKYCHandler(deps.KYC)
	api.GET("/kyc", kycHandler.Mine)
	api.PUT("/kyc", kycHandler.Submit)
	api.POST("/kyc/documents", kycHandler.UploadDocument)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	profileHandler := handlers.NewProfileHandler(deps.Profile)
	api.GET("/me", profileHandler.Me)
	api.PUT("/me/device-token", profileHandler.RegisterDevice)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/earnings", earningsHandler.Platform)
	admin.GET("/kyc", kycHandler.List)
	admin.POST("/kyc/:userID/review", kycHandler.StartReview)
	admin.POST("/kyc/:userID/approve", kycHandler.Approve)
	admin.POST("/kyc/:userID/reject", kycHandler.Reject)
	admin.GET("/reviews/suspicious", reviewHandler.Suspicious)
}
