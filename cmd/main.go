package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hrplatform/go-notification-engine/internal/audience"
	"github.com/hrplatform/go-notification-engine/internal/channel"
	"github.com/hrplatform/go-notification-engine/internal/delivery"
	"github.com/hrplatform/go-notification-engine/internal/dispatch"
	"github.com/hrplatform/go-notification-engine/internal/events"
	"github.com/hrplatform/go-notification-engine/internal/handler"
	"github.com/hrplatform/go-notification-engine/internal/middleware"
	"github.com/hrplatform/go-notification-engine/internal/repository"
	"github.com/hrplatform/go-notification-engine/internal/shared/config"
	"github.com/hrplatform/go-notification-engine/internal/shared/logger"
	"github.com/hrplatform/go-notification-engine/internal/shared/mongodb"
	"github.com/hrplatform/go-notification-engine/internal/shared/rabbitmq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("starting notification engine")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize repositories
	scheduledRepo := repository.NewScheduledItemRepository(mongoClient)
	recurringRepo := repository.NewRecurringItemRepository(mongoClient)
	recordRepo := repository.NewNotificationRecordRepository(mongoClient)
	directoryRepo := repository.NewDirectoryRepository(mongoClient)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndexes()
	if err := scheduledRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduled item indexes")
	}
	if err := recurringRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create recurring item indexes")
	}
	if err := recordRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to create notification record indexes")
	}

	// Initialize realtime event publisher; an empty broker URL disables it
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.RabbitMQURL != "" {
		rabbitClient, err := rabbitmq.NewRabbitMQClient(cfg.Events.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rabbitClient.Close()

		publisher, err = events.NewRabbitMQPublisher(rabbitClient, cfg.Events.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to declare event exchange")
		}
	} else {
		log.Warn().Msg("no broker configured, realtime events disabled")
	}

	// Initialize delivery channels
	pushProvider := channel.NewHTTPPushProvider(channel.PushConfig{
		BaseURL: cfg.Push.BaseURL,
		APIKey:  cfg.Push.APIKey,
		AppID:   cfg.Push.AppID,
		Timeout: time.Duration(cfg.Push.TimeoutMS) * time.Millisecond,
	}, log)
	emailSender := channel.NewSMTPEmailSender(channel.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail,
		FromName:  cfg.SMTP.FromName,
	}, log)

	// Initialize delivery pipeline
	deliverer := delivery.NewDeliverer(pushProvider, emailSender, directoryRepo, recordRepo, log)
	sendQueue := delivery.NewQueue(deliverer, cfg.Queue.MaxRetries, cfg.Queue.DrainDelay(), log)

	// Initialize dispatcher
	resolver := audience.NewResolver(directoryRepo, log)
	dispatcher := dispatch.NewDispatcher(scheduledRepo, recurringRepo, recordRepo, resolver, sendQueue, publisher, log)
	if cfg.Dispatch.Enabled {
		if err := dispatcher.Start(cfg.Dispatch.CronSpec); err != nil {
			log.Fatal().Err(err).Msg("failed to start dispatch loop")
		}
	} else {
		log.Warn().Msg("dispatch loop disabled by configuration")
	}

	// Initialize HTTP handlers
	scheduledHandler := handler.NewScheduledHandler(scheduledRepo, log)
	recurringHandler := handler.NewRecurringHandler(recurringRepo, log)
	notificationHandler := handler.NewNotificationHandler(recordRepo, dispatcher, log)
	rateLimiter := middleware.NewClientRateLimiter(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)

	router := handler.NewRouter(cfg.Server.Mode, scheduledHandler, recurringHandler, notificationHandler, rateLimiter)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("notification engine started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown: stop the dispatch timer first so no new work is
	// created, then discard queued sends, then drain the HTTP server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down notification engine")

	dispatcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("notification engine stopped")
}
