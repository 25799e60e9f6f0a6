package cmd

import (
	"context"
	"log/slog"
	"os"

	"pos-relay/config"
	"pos-relay/internal/handlers"
	"pos-relay/internal/relay"
	"pos-relay/internal/services"
	"pos-relay/monitoring"
	"pos-relay/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	app := pocketbase.New()

	// Listen on PORT unless a command was given explicitly
	if len(os.Args) <= 1 {
		app.RootCmd.SetArgs([]string{"serve", "--http=0.0.0.0:" + cfg.Port})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := monitoring.NewMonitor()

	// Initialize relays
	var publishers []relay.Publisher
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		client, err := utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		publishers = append(publishers, relay.NewRedisPublisher(client, cfg.RedisChannel))
	}
	if cfg.PubNubEnabled() {
		publishers = append(publishers, relay.NewPubNubPublisher(relay.PubNubConfig{
			PublishKey:   cfg.PubNubPublishKey,
			SubscribeKey: cfg.PubNubSubscribeKey,
			SecretKey:    cfg.PubNubSecretKey,
			UserID:       cfg.PubNubUserID,
			Channel:      cfg.PubNubChannel,
		}))
	}

	dispatcher := relay.NewDispatcher(relay.Options{
		Timeout:        cfg.RelayTimeout,
		MaxFailures:    cfg.RelayMaxFailures,
		CircuitTimeout: cfg.RelayCircuitTimeout,
	}, monitor, logger, publishers...)

	var relays []services.Relay
	if dispatcher.Len() > 0 {
		relays = append(relays, dispatcher)
		logger.Info("event relays enabled", "count", dispatcher.Len())
	}

	// Initialize services
	invoiceService := services.NewInvoiceService(monitor, logger)
	broadcaster := services.NewEventBroadcaster(cfg.SubscriberBuffer, monitor, logger, relays...)
	paymentService := services.NewPaymentService(invoiceService, broadcaster, logger)

	deps := handlers.Dependencies{
		Invoices:           invoiceService,
		Payments:           paymentService,
		Broadcaster:        broadcaster,
		PublicFS:           os.DirFS(cfg.PublicDir),
		CashierPage:        cfg.CashierPage,
		PayPage:            cfg.PayPage,
		StreamWriteTimeout: cfg.StreamWriteTimeout,
		HeartbeatInterval:  cfg.HeartbeatInterval,
		Redis:              redisClient,
		EnableMetrics:      cfg.EnableMetrics,
		Logger:             logger,
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		handlers.RegisterRoutes(e.Router, deps)

		logger.Info("Server routes registered", "port", cfg.Port, "publicDir", cfg.PublicDir)
		return e.Next()
	})

	// Open event streams would otherwise hold the server open on shutdown
	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		logger.Info("Shutdown signal received, cleaning up...")
		broadcaster.Close()
		dispatcher.Close()
		cancel()
		return e.Next()
	})

	return app.Start()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Environment == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
