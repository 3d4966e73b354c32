package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortly/internal/middleware"
	"github.com/SergeiKhy/shortly/internal/service"
)

func NewRouter(
	urlService service.URLService,
	qrService service.QRCodeService,
	authService service.AuthService,
	rateLimiter *middleware.RateLimiter,
	jwtAuth *middleware.JWTAuth,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	// Rate limiting для всех запросов
	router.Use(rateLimiter.Middleware())

	urlHandler := NewURLHandler(urlService, qrService, baseURL, logger)
	authHandler := NewAuthHandler(authService, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify/:id", authHandler.VerifyEmail)
			auth.POST("/resend/:id", authHandler.ResendToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password/:id", authHandler.ResetPassword)
			auth.POST("/change-password", jwtAuth.Middleware(), authHandler.ChangePassword)
		}

		// Управление ссылками доступно только владельцу
		urls := v1.Group("/urls", jwtAuth.Middleware())
		{
			urls.POST("", urlHandler.Shorten)
			urls.GET("", urlHandler.List)
			urls.GET("/:id", urlHandler.Get)
			urls.PATCH("/:id", urlHandler.Edit)
			urls.DELETE("/:id", urlHandler.Delete)
			urls.PATCH("/:id/activate", urlHandler.Activate)
			urls.PATCH("/:id/deactivate", urlHandler.Deactivate)
			urls.GET("/:id/stats", urlHandler.Stats)
			urls.GET("/:id/stats/daily", urlHandler.DailyStats)
			urls.POST("/:id/qrcode", urlHandler.GenerateQR)
			urls.GET("/:id/qrcode", urlHandler.GetQR)
			urls.DELETE("/:id/qrcode", urlHandler.DeleteQR)
		}
	}

	// Редирект (корневой путь) - без аутентификации.
	// Второй сегмент нужен ссылкам на кастомных доменах.
	router.GET("/:code", urlHandler.Redirect)
	router.GET("/:code/:sub", urlHandler.Redirect)

	return router
}
