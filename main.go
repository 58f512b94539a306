package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"surveyor/config"
	"surveyor/handlers"
	"surveyor/middleware"
	"surveyor/models"
	"surveyor/routes"
	"surveyor/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := config.InitLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := models.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, translations will not be cached", zap.Error(err))
	}

	translationCache := services.NewTranslationCache(redisClient, cfg.TranslationCacheTTL, logger)

	hub := services.NewHub(logger)
	go hub.Run(ctx)

	authService := services.NewAuthService(db, cfg.JWTSecret, logger)
	surveyService := services.NewSurveyService(db, translationCache, logger)
	answerService := services.NewAnswerService(db, translationCache, hub, logger, cfg.MassAssignmentStrict)

	authHandler := handlers.NewAuthHandler(authService)
	surveyHandler := handlers.NewSurveyHandler(surveyService)
	answerHandler := handlers.NewAnswerHandler(answerService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	routes.SetupRoutes(router, authHandler, surveyHandler, answerHandler, hub, surveyService, cfg.JWTSecret, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddress, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Bool("mass_assignment_strict", cfg.MassAssignmentStrict))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
