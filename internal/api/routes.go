package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/handlers"
	"github.com/Gurilao-dev/exmonitor/internal/middleware"
	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// Deps carries everything the router needs; SetupRoutes is pure wiring.
type Deps struct {
	Logger    *zap.Logger
	Tokens    *services.TokenService
	Guard     *services.AbuseGuard
	Auth      *handlers.AuthHandler
	Devices   *handlers.DeviceHandler
	Streams   *handlers.StreamHandler
	Signaling *handlers.SignalingHandler
	Recorder  middleware.AccessRecorder
}

// SetupRoutes configures all API routes with their middleware. Every
// mutating REST entry point sits behind a rate-limit class; every
// token-gated entry point sits behind the matching RequireToken middleware.
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.RequestID(d.Logger))
	router.Use(middleware.Logger(d.Logger, d.Recorder))
	router.Use(middleware.ErrorHandler())

	// Public routes
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/status", handlers.StatusHandler)

	auth := router.Group("/auth")
	{
		auth.POST("/validate-global",
			middleware.RateLimit(d.Guard, services.LimitGlobalPassword),
			middleware.Fingerprint(),
			d.Auth.ValidateGlobal)
		auth.GET("/verify-global",
			middleware.RequireToken(d.Tokens, models.TokenTypePreLogin),
			d.Auth.VerifyGlobal)
		auth.POST("/request-register",
			middleware.RateLimit(d.Guard, services.LimitRegister),
			middleware.Fingerprint(),
			middleware.RequireToken(d.Tokens, models.TokenTypePreLogin),
			d.Auth.RequestRegister)
		auth.POST("/register",
			middleware.RequireToken(d.Tokens, models.TokenTypeRegisterRequest),
			d.Auth.Register)
		auth.POST("/login",
			middleware.RateLimit(d.Guard, services.LimitLogin),
			middleware.Fingerprint(),
			middleware.RequireToken(d.Tokens, models.TokenTypePreLogin),
			d.Auth.Login)
		auth.POST("/logout", d.Auth.Logout)
		auth.POST("/refresh", d.Auth.Refresh)
	}

	devices := router.Group("/devices")
	devices.Use(middleware.RateLimit(d.Guard, services.LimitAPI))
	{
		session := middleware.RequireToken(d.Tokens, models.TokenTypeSession)
		devices.POST("/register", session, d.Devices.Register)
		devices.POST("/pair", session, d.Devices.Pair)
		devices.GET("/list", session, d.Devices.List)
		devices.PATCH("/:deviceId/status", session, d.Devices.UpdateStatus)
		devices.DELETE("/:deviceId", session, d.Devices.Delete)
		devices.GET("/:deviceId/stream-token", session, d.Devices.StreamToken)
	}

	stream := router.Group("/stream")
	stream.Use(middleware.RateLimit(d.Guard, services.LimitAPI))
	{
		stream.POST("/start",
			middleware.RequireToken(d.Tokens, models.TokenTypeStream),
			d.Streams.Start)
		stream.POST("/stop",
			middleware.RequireToken(d.Tokens, models.TokenTypeStream),
			d.Streams.Stop)
		stream.GET("/:deviceId/stats",
			middleware.RequireToken(d.Tokens, models.TokenTypeSession),
			d.Streams.Stats)
	}

	// WebSocket signaling; authentication happens in-band with a stream token.
	router.GET("/ws/signaling", d.Signaling.Handle)
}
