package router

import (
	"github.com/gin-gonic/gin"
	"github.com/opas/opas-backend/config"
	"github.com/opas/opas-backend/internal/app/controller"
	"github.com/opas/opas-backend/internal/middleware"
)

type Router struct {
	authController         *controller.AuthController
	registrationController *controller.RegistrationController
	adminController        *controller.AdminController
	notificationController *controller.NotificationController
	productController      *controller.ProductController
	uploadController       *controller.UploadController
	wsController           *controller.WebSocketController
	authMiddleware         *middleware.AuthMiddleware
	config                 *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	registrationController *controller.RegistrationController,
	adminController *controller.AdminController,
	notificationController *controller.NotificationController,
	productController *controller.ProductController,
	uploadController *controller.UploadController,
	wsController *controller.WebSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:         authController,
		registrationController: registrationController,
		adminController:        adminController,
		notificationController: notificationController,
		productController:      productController,
		uploadController:       uploadController,
		wsController:           wsController,
		authMiddleware:         authMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "OPAS API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		registrations := v1.Group("/registrations")
		registrations.Use(r.authMiddleware.Authenticate())
		{
			registrations.POST("", r.registrationController.Submit)
			registrations.GET("/me", r.registrationController.GetMine)
			registrations.PUT("/:id/resubmit", r.registrationController.Resubmit)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/registrations", r.adminController.ListRegistrations)
			admin.GET("/registrations/export", r.adminController.ExportRegistrations)
			admin.GET("/registrations/:id", r.adminController.GetRegistration)
			admin.POST("/registrations/:id/approve", r.adminController.Approve)
			admin.POST("/registrations/:id/reject", r.adminController.Reject)
			admin.POST("/registrations/:id/request-info", r.adminController.RequestInfo)

			admin.POST("/documents/:id/verify", r.adminController.VerifyDocument)
			admin.POST("/documents/:id/reject", r.adminController.RejectDocument)

			admin.GET("/ceilings", r.productController.ListCeilings)
			admin.PUT("/ceilings", r.productController.SetCeiling)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.List)
			products.GET("/:id", r.productController.Get)

			products.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("seller", "admin"),
				r.productController.Create,
			)
			products.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("seller", "admin"),
				r.productController.Update,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("seller", "admin"),
				r.productController.Delete,
			)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(r.authMiddleware.Authenticate())
		{
			notifications.GET("", r.notificationController.List)
			notifications.GET("/unread-count", r.notificationController.UnreadCount)
			notifications.PUT("/read-all", r.notificationController.MarkAllAsRead)
			notifications.PUT("/:id/read", r.notificationController.MarkAsRead)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(r.authMiddleware.Authenticate())
		{
			uploads.POST("/documents", r.uploadController.PresignDocument)
		}

		ws := v1.Group("/ws")
		ws.Use(r.authMiddleware.Authenticate())
		{
			ws.GET("/notifications", r.wsController.Connect)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
