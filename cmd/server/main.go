package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/handlers"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/maintenance"
	"github.com/ukydev/fleet-maintenance/internal/notify"
	"github.com/ukydev/fleet-maintenance/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func newLogger(cfg *config.Config) *log.Entry {
	l := log.New()
	l.SetFormatter(&log.JSONFormatter{})
	l.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		l.SetLevel(log.InfoLevel)
	} else {
		l.SetLevel(log.DebugLevel)
	}
	return l.WithField("service", "fleet-maintenance")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Entry) error {
	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.WithError(err).Warn("mongo disconnect failed")
		}
	}()

	store := db.NewMongoStore(client, cfg.MongoDB)
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.WithField("database", cfg.MongoDB).Info("connected to MongoDB")

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	inv, mnt := newServices(store, logger)

	dispatchers, mqttClient := buildDispatchers(cfg, store, logger, notify.ConnectMQTT)
	if mqttClient != nil {
		defer mqttClient.Disconnect(250)
	}
	queue := notify.NewQueue(logger, cfg.NotifyWorkers, cfg.NotifyBuffer, dispatchers...)
	queue.Start()
	defer queue.Close()

	files, err := storage.NewLocal(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes)
	if err != nil {
		return fmt.Errorf("upload storage: %w", err)
	}

	router := handlers.NewRouter(handlers.Dependencies{
		Auth:        authService,
		Store:       store,
		Inventory:   inv,
		Maintenance: mnt,
		Notifier:    queue,
		Files:       files,
		UploadDir:   cfg.UploadDir,
		MaxUpload:   cfg.UploadMaxBytes,
		Metrics:     cfg.MetricsEnabled,
		Log:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, logger)
}

// newServices builds the core services; each tags its own component field.
func newServices(store db.Store, logger *log.Entry) (*inventory.Service, *maintenance.Service) {
	inv := inventory.NewService(store, logger)
	return inv, maintenance.NewService(store, inv, logger)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, logger *log.Entry) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type mqttConnector func(broker, clientID string) (mqtt.Client, error)

// buildDispatchers returns the configured notification channels. A broker
// that cannot be reached is logged and skipped.
func buildDispatchers(cfg *config.Config, store db.Store, logger *log.Entry, connect mqttConnector) ([]notify.Dispatcher, mqtt.Client) {
	var (
		dispatchers []notify.Dispatcher
		client      mqtt.Client
	)
	if cfg.MQTTBroker != "" {
		c, err := connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			logger.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, notifications will not be published")
		} else {
			client = c
			dispatchers = append(dispatchers, notify.NewMQTTDispatcher(c, cfg.MQTTTopicPrefix))
		}
	}
	if cfg.SMTPHost != "" {
		sender := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		dispatchers = append(dispatchers, notify.NewMailDispatcher(sender, store.Users(), cfg.SMTPFrom))
	}
	if len(dispatchers) == 0 {
		logger.Warn("no notification channel configured")
	}
	return dispatchers, client
}
