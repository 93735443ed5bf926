package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"govalert/config"
	"govalert/internal/clients"
	"govalert/internal/metrics"
	"govalert/internal/queue"
	"govalert/internal/registry"
	"govalert/internal/repository"
	"govalert/internal/services"
	"govalert/internal/transmit"
	"govalert/pkg/database"
	"govalert/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
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

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	taskQueue := queue.NewRedisQueue(redisClient, "govalert:tasks")

	repos := repository.NewRepositories(db)
	providerRegistry := registry.New(repos.Providers, cfg.Provider.HomeRegion)

	transmitter := transmit.NewKafkaTransmitter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer transmitter.Close()

	dispatch := services.NewDispatchService(repos, providerRegistry, transmitter, taskQueue, appLogger, services.DispatchOptions{
		MaxRetries:          cfg.Dispatch.MaxRetries,
		SimulatedRecipients: cfg.Dispatch.SimulatedRecipients,
	})
	dispatch.RegisterSMSClient("twilio", clients.NewTwilioSMSClient(
		"twilio",
		cfg.Provider.TwilioAccountSID,
		cfg.Provider.TwilioAuthToken,
		cfg.Provider.TwilioFromNumber,
	))
	dispatch.RegisterEmailClient("sendgrid", clients.NewSendgridEmailClient(
		"sendgrid",
		cfg.Provider.SendgridAPIKey,
		cfg.Provider.SendgridFromEmail,
	))

	metrics.InitWorkerMetrics()

	worker := queue.NewWorker(taskQueue, appLogger)
	worker.Register(queue.KindDeliverSMS, deliverHandler(dispatch))
	worker.Register(queue.KindDeliverEmail, deliverHandler(dispatch))
	worker.Register(queue.KindTransmitBroadcastEvent, func(ctx context.Context, task queue.Task) error {
		var p services.TransmitPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return err
		}
		return dispatch.TransmitBroadcastEvent(ctx, p.BroadcastEventID, task.Attempt)
	})
	worker.Register(queue.KindSimulateResponse, func(ctx context.Context, task queue.Task) error {
		var p services.SimulatePayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return err
		}
		return dispatch.SimulateResponse(ctx, p)
	})
	worker.Start()
	defer worker.Stop()

	janitor := cron.New()
	if _, err := janitor.AddFunc(cfg.Dispatch.JanitorSpec, func() {
		if _, err := dispatch.SweepStuckSending(context.Background(), cfg.Dispatch.SendingTimeout); err != nil {
			appLogger.Errorf("janitor sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule janitor: %v", err)
	}
	janitor.Start()
	defer janitor.Stop()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9102", nil); err != nil {
			appLogger.Errorf("metrics server stopped: %v", err)
		}
	}()

	appLogger.Infof("worker started, polling task queue")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("worker shutting down")
}

func deliverHandler(dispatch *services.DispatchService) queue.HandlerFunc {
	return func(ctx context.Context, task queue.Task) error {
		var p services.DeliverPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return err
		}
		return dispatch.SendToProvider(ctx, p.NotificationID, task.Attempt)
	}
}
