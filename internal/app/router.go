// internal/app/router.go
package app

import (
	"net/http"

	authHandler "memoriza-service/internal/handlers/auth"
	carouselHandler "memoriza-service/internal/handlers/carousel"
	wsHandler "memoriza-service/internal/handlers/websocket"
	"memoriza-service/internal/middleware"
	"memoriza-service/internal/pkg/permission"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler       *authHandler.AuthHandler
	CarouselHandler   *carouselHandler.CarouselHandler
	WSHandler         *wsHandler.WebSocketHandler
	AuthMiddleware    *middleware.AuthMiddleware
	SessionMiddleware *middleware.SessionMiddleware
	Metrics           http.Handler
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(h.Metrics))

	// ==================== Health Check ====================
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// every other route runs inside a session
	api := r.Group("/api/v1")
	api.Use(h.SessionMiddleware.Session())

	// ==================== WebSocket ====================
	api.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Session Routes ====================
	authPublic := api.Group("/session")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/token", h.AuthHandler.LoginWithToken)
		authPublic.GET("/callback", h.AuthHandler.Callback)
		authPublic.POST("/logout", h.AuthHandler.Logout)
		authPublic.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Authenticated Session Routes ====================
	authProtected := api.Group("/session")
	authProtected.Use(h.AuthMiddleware.RequireAuth())
	{
		authProtected.PATCH("/profile", h.AuthHandler.UpdateProfile)
		authProtected.GET("/capabilities/:module", h.AuthHandler.Capabilities)
	}

	// ==================== Storefront ====================
	api.GET("/carousel", h.CarouselHandler.List)

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.RequireAuth())
	{
		carousel := admin.Group("/carousel")
		{
			carousel.GET("",
				h.AuthMiddleware.RequireCapability(permission.ModuleCarousel, permission.ActionView),
				h.CarouselHandler.List)
			carousel.POST("",
				h.AuthMiddleware.RequireCapability(permission.ModuleCarousel, permission.ActionCreate),
				h.CarouselHandler.Create)
			carousel.POST("/reorder",
				h.AuthMiddleware.RequireCapability(permission.ModuleCarousel, permission.ActionEdit),
				h.CarouselHandler.Reorder)
			carousel.PUT("/:id",
				h.AuthMiddleware.RequireCapability(permission.ModuleCarousel, permission.ActionEdit),
				h.CarouselHandler.Update)
			carousel.DELETE("/:id",
				h.AuthMiddleware.RequireCapability(permission.ModuleCarousel, permission.ActionDelete),
				h.CarouselHandler.Delete)
		}

		admin.GET("/ws/stats", append(h.AuthMiddleware.AdminOnly(), h.WSHandler.GetStats)...)
	}
}
