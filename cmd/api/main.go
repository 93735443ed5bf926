package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"govalert/config"
	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	"govalert/internal/domain/service"
	"govalert/internal/handler"
	"govalert/internal/metrics"
	"govalert/internal/middleware"
	"govalert/internal/queue"
	"govalert/internal/repository"
	"govalert/internal/services"
	"govalert/pkg/database"
	"govalert/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(appLogger)
	defer appLogger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&service.Service{},
		&service.User{},
		&service.ServiceUser{},
		&broadcast.BroadcastMessage{},
		&broadcast.BroadcastEvent{},
		&notification.Notification{},
		&provider.ProviderDetails{},
	); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	if err := database.EnsureDefaultProviders(db); err != nil {
		log.Fatalf("Failed to seed providers: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	taskQueue := queue.NewRedisQueue(redisClient, "govalert:tasks")

	repos := repository.NewRepositories(db)
	broadcastService := services.NewBroadcastService(repos, taskQueue, appLogger, cfg.Provider.TransmittedSender)
	notificationService := services.NewNotificationService(repos, taskQueue, appLogger)

	metrics.InitAPIMetrics()

	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(appLogger))
	r.Use(middleware.ErrorHandler(appLogger))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(redisClient, 300, time.Minute)))

	broadcastHandler := handler.NewBroadcastHandler(broadcastService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	providerHandler := handler.NewProviderHandler(repos.Providers)

	svc := r.Group("/service/:service_id/broadcast-message")
	{
		svc.POST("", broadcastHandler.Create)
		svc.GET("", broadcastHandler.List)
		svc.GET("/:id", broadcastHandler.GetByID)
		svc.POST("/:id", broadcastHandler.Update)
		svc.POST("/:id/status", broadcastHandler.UpdateStatus)
	}
	r.POST("/v2/service/:service_id/broadcast", broadcastHandler.CreateV2)

	r.POST("/notifications/sms", notificationHandler.SendSMS)
	r.POST("/notifications/email", notificationHandler.SendEmail)
	r.GET("/notifications/:id", notificationHandler.GetByID)

	r.GET("/provider-details", providerHandler.List)
	r.POST("/provider-details/:identifier", providerHandler.Update)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	appLogger.Infof("starting api server on port %s", cfg.Server.Port)
	if err := r.Run(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
