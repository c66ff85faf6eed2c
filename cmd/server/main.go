package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/internal/infrastructure/config"
	"jetlag-mailcast/internal/infrastructure/oauth"
	"jetlag-mailcast/internal/infrastructure/persistence"
	"jetlag-mailcast/internal/infrastructure/router"
	"jetlag-mailcast/internal/interface/api"
	"jetlag-mailcast/internal/interface/gmail"
	"jetlag-mailcast/internal/interface/mailer"
	repo "jetlag-mailcast/internal/interface/repository"
	"jetlag-mailcast/internal/usecase"
	"jetlag-mailcast/pkg/logger"
	"jetlag-mailcast/pkg/metrics"
	"jetlag-mailcast/pkg/retry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Jetlag Mailcast", "version", cfg.AppVersion, "queue", cfg.QueueBackend, "mail", cfg.MailTransport)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(cfg.MetricsNamespace)

	// Set up the notification queue
	var (
		queue   repository.NotificationQueueRepository
		cleanup func()
	)
	switch cfg.QueueBackend {
	case config.QueueBackendMongo:
		log.Info("Connecting to MongoDB")
		mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		db := persistence.GetDatabase(mongoClient, cfg.MongoDB)
		queue = repo.NewMongoNotificationQueueRepository(db, cfg.QueueTTL, log)
		cleanup = func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error("MongoDB disconnect error", "error", err)
			}
		}
	default:
		log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		redisClient, err := persistence.NewRedisClient(ctx, persistence.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		queue = repo.NewRedisNotificationQueueRepository(redisClient, cfg.QueueTTL, log)
		cleanup = func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Redis close error", "error", err)
			}
		}
	}
	defer cleanup()

	// Set up the destination catalog
	var destinations repository.DestinationRepository
	if cfg.PostgresDSN != "" {
		gormDB, err := persistence.NewPostgresDB(cfg.PostgresDSN)
		if err != nil {
			log.Error("Failed to connect to PostgreSQL, using static destinations", "error", err)
		} else {
			destinationRepo := repo.NewGormDestinationRepository(gormDB)
			if err := destinationRepo.Migrate(ctx); err != nil {
				log.Warn("Destination table migration failed", "error", err)
			} else if err := destinationRepo.Seed(ctx, usecase.DefaultDestinations); err != nil {
				log.Warn("Destination table seeding failed", "error", err)
			}
			destinations = destinationRepo
		}
	}
	catalog, err := usecase.LoadCatalog(ctx, destinations, usecase.DefaultFallbackCodes, log)
	if err != nil {
		log.Fatal("Failed to build destination catalog", "error", err)
	}
	log.Info("Destination catalog ready", "destinations", catalog.Len())

	// Set up the flight source
	var flightSource repository.FlightDataSource
	if cfg.FlightAPIURL != "" {
		flightSource = repo.NewFlightAPIRepository(cfg.FlightAPIURL, cfg.FlightAPIKey, cfg.FlightAPITimeout, log)
	}
	assigner := usecase.NewFlightAssigner(flightSource, catalog, cfg.OriginCode, cfg.DestinationCodes, log,
		usecase.WithMetrics(m))

	// Set up the mail transport
	var mailSender repository.MailSender
	switch cfg.MailTransport {
	case config.MailTransportGmail:
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			log,
		)
		mailSender, err = gmail.NewGmailSender(ctx, log, option.WithTokenSource(gmailOAuth.GetTokenSource(ctx)))
		if err != nil {
			log.Fatal("Failed to create Gmail sender", "error", err)
		}
	case config.MailTransportSES:
		mailSender, err = mailer.NewSESSender(ctx, cfg.AWSRegion, cfg.SESConfigurationSet, log)
		if err != nil {
			log.Fatal("Failed to create SES sender", "error", err)
		}
	default:
		mailSender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.GmailUser, cfg.GmailPass, log)
	}

	submissions := usecase.NewSubmissionProcessor(assigner, queue, mailSender, cfg.MailFrom, cfg.QueueKeyPrefix, log, m)
	dispatcher := usecase.NewArrivalDispatcher(usecase.ArrivalDispatcherConfig{
		Queue:       queue,
		Mailer:      mailSender,
		MailFrom:    cfg.MailFrom,
		KeyPrefix:   cfg.QueueKeyPrefix,
		Lookback:    cfg.DispatchLookback,
		Concurrency: cfg.DispatchConcurrency,
		SendTimeout: cfg.SendTimeout,
		StaleAfter:  cfg.StaleClaimAfter,
		Backoff:     retry.ExponentialBackoff{Base: cfg.RetryBaseDelay, Max: cfg.RetryMaxDelay},
		Logger:      log,
		Metrics:     m,
	})

	// Start the arrival dispatcher in a goroutine
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Start(ctx, cfg.DispatchInterval)
	}()

	// Set up HTTP server
	handler := api.NewHandler(submissions, dispatcher, queue, cfg.DispatchToken, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(handler, promhttp.Handler(), cfg.WriteTimeout),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Let an in-flight claim cycle finish its re-queues before the store closes
	<-dispatcherDone

	log.Info("Jetlag Mailcast stopped")
}
