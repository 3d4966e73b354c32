package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/shortly/internal/auth"
	"github.com/SergeiKhy/shortly/internal/config"
	"github.com/SergeiKhy/shortly/internal/handler"
	"github.com/SergeiKhy/shortly/internal/middleware"
	"github.com/SergeiKhy/shortly/internal/repository"
	"github.com/SergeiKhy/shortly/internal/service"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	urlRepo := repository.NewURLRepository(db)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)
	qrRepo := repository.NewQRCodeRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)

	// Инициализация сервисов
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn)
	tokenService := service.NewTokenService(cacheRepo, logger)
	recorder := service.NewClickRecorder(clickRepo)

	urlService := service.NewURLService(urlRepo, clickRepo, qrRepo, cacheRepo, recorder, logger, service.URLServiceConfig{
		RedirectTTL:    cfg.Cache.RedirectTTL,
		CountCacheHits: cfg.Cache.CountCacheHits,
	})
	qrService := service.NewQRCodeService(urlRepo, qrRepo, cfg.App.BaseURL)

	// Почта уходит через worker pool, ошибки доставки не роняют запросы
	mailer := service.NewMailDispatcher(service.NewSMTPSender(cfg.SMTP), logger)
	mailer.Start()
	defer mailer.Stop()

	authService := service.NewAuthService(userRepo, tokenService, mailer, jwtManager, logger, cfg.Token.TTL)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	jwtAuth := middleware.NewJWTAuth(jwtManager)

	// Настройка роутера
	router := handler.NewRouter(urlService, qrService, authService, rateLimiter, jwtAuth, cfg.App.BaseURL, logger)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
