package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/studenthub/hub-api/api/swagger"
	"github.com/studenthub/hub-api/internal/handler"
	"github.com/studenthub/hub-api/internal/middleware"
	"github.com/studenthub/hub-api/internal/repository"
	"github.com/studenthub/hub-api/internal/router"
	"github.com/studenthub/hub-api/internal/service"
	"github.com/studenthub/hub-api/pkg/cache"
	"github.com/studenthub/hub-api/pkg/config"
	"github.com/studenthub/hub-api/pkg/database"
	"github.com/studenthub/hub-api/pkg/jobs"
	"github.com/studenthub/hub-api/pkg/logger"
	corsmiddleware "github.com/studenthub/hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studenthub/hub-api/pkg/middleware/requestid"
)

// @title Smart Student Hub API
// @version 1.0.0
// @description Achievement tracking and verified portfolio backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	eventRepo := repository.NewEventRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "student-hub",
	})

	policy := service.NewApprovalPolicy(facultyRepo)
	badgeSvc := service.NewBadgeService(badgeRepo, studentRepo, eventRepo, notificationSvc, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, cfg.Analytics.CacheTTL, logr)

	achievementSvc := service.NewAchievementService(service.AchievementServiceParams{
		Repo:       achievementRepo,
		Categories: categoryRepo,
		Students:   studentRepo,
		Users:      userRepo,
		Approvers:  facultyRepo,
		Policy:     policy,
		Badges:     badgeSvc,
		Notifier:   notificationSvc,
		Analytics:  analyticsSvc,
		Validator:  validate,
		Logger:     logr,
	})
	eventSvc := service.NewEventService(service.EventServiceParams{
		Repo:      eventRepo,
		Users:     userRepo,
		Policy:    policy,
		Notifier:  notificationSvc,
		Badges:    badgeSvc,
		Analytics: analyticsSvc,
		Validator: validate,
		Logger:    logr,
	})
	mentorSvc := service.NewMentorService(facultyRepo, studentRepo, notificationSvc, logr)
	categorySvc := service.NewCategoryService(categoryRepo, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	portfolioSvc := service.NewPortfolioService(studentRepo, achievementRepo, eventRepo, badgeRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	router.Setup(r, router.Params{
		Config:        cfg,
		Auth:          authSvc,
		Users:         userRepo,
		Auths:         handler.NewAuthHandler(authSvc),
		Achievements:  handler.NewAchievementHandler(achievementSvc, metricsSvc),
		Events:        handler.NewEventHandler(eventSvc),
		Faculty:       handler.NewFacultyHandler(mentorSvc),
		Badges:        handler.NewBadgeHandler(badgeSvc),
		Students:      handler.NewStudentHandler(studentSvc, portfolioSvc),
		Categories:    handler.NewCategoryHandler(categorySvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Analytics:     handler.NewAnalyticsHandler(analyticsSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
