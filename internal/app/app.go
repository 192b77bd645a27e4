package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/adapter/repository/postgres"
	"github.com/harborlabs/harbor-backoffice/internal/api"
	"github.com/harborlabs/harbor-backoffice/internal/config"
	"github.com/harborlabs/harbor-backoffice/internal/domain/campaign"
	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/livestream"
	"github.com/harborlabs/harbor-backoffice/internal/domain/order"
	"github.com/harborlabs/harbor-backoffice/internal/domain/pickpack"
	"github.com/harborlabs/harbor-backoffice/internal/domain/returns"
	"github.com/harborlabs/harbor-backoffice/internal/domain/subscription"
	"github.com/harborlabs/harbor-backoffice/internal/domain/ticket"
	"github.com/harborlabs/harbor-backoffice/internal/domain/warehouse"
	"github.com/harborlabs/harbor-backoffice/internal/handler"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
	"github.com/harborlabs/harbor-backoffice/internal/relay"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/orders"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/returnrequests"
	"github.com/harborlabs/harbor-backoffice/pkg/db"
	zaplog "github.com/harborlabs/harbor-backoffice/pkg/log"
	"github.com/harborlabs/harbor-backoffice/pkg/mailclient"
	"github.com/harborlabs/harbor-backoffice/pkg/snowflake"
	"github.com/harborlabs/harbor-backoffice/sql/migrations"
)

// RunServer starts the HTTP server, the dispatch relay and the archiver.
func RunServer() {
	app := fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Infrastructure (Adapters)
			mailclient.NewFromEnv,
			outbox.NewStore,
			newRelayStore,
			newRelayPruner,
			uow.NewFactory,

			// Domain Adapters (Bind Interfaces)
			fx.Annotate(
				postgres.NewOrderRepository,
				fx.As(new(order.Repository)),
			),
			fx.Annotate(
				postgres.NewReturnRequestRepository,
				fx.As(new(returns.Repository)),
			),

			// Use Cases
			orders.NewService,
			returnrequests.NewService,

			// Event plumbing
			newRegistry,
			handler.NewGuard,
			handler.NewEmailSender,
			handler.NewInventoryUpdater,
			handler.NewAnalyticsRecorder,
			newRelay,
			relay.NewArchiver,

			// API
			api.NewRouter,
		),
		db.Module,        // Database Module
		snowflake.Module, // Snowflake ID Module
		zaplog.Module,    // Logger Module
		fx.Invoke(registerHooks),
	)

	app.Run()
}

// RunMigrations executes database migrations (up or down).
func RunMigrations(command string) error {
	if command == "" {
		command = "up"
	}

	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting database migration...", zap.String("command", command))

	dbURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	d, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration up failed: %w", err)
		}
		if err == migrate.ErrNoChange {
			logger.Info("No changes to apply")
		} else {
			logger.Info("Migration up applied successfully")
		}
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("Migration down applied successfully")
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}

	return nil
}

// newRegistry declares every event type the system can emit. The relay
// refuses to dispatch anything not registered here.
func newRegistry() *event.Registry {
	r := event.NewRegistry()
	order.RegisterEvents(r)
	pickpack.RegisterEvents(r)
	returns.RegisterEvents(r)
	subscription.RegisterEvents(r)
	livestream.RegisterEvents(r)
	campaign.RegisterEvents(r)
	ticket.RegisterEvents(r)
	warehouse.RegisterEvents(r)
	return r
}

func newRelayStore(s *outbox.Store) relay.Store {
	return s
}

func newRelayPruner(s *outbox.Store) relay.Pruner {
	return s
}

// newRelay wires handlers to the event types they consume. The analytics
// recorder sees everything; the others subscribe narrowly.
func newRelay(
	store relay.Store,
	registry *event.Registry,
	cfg *config.Config,
	logger *zap.Logger,
	email *handler.EmailSender,
	inventory *handler.InventoryUpdater,
	analytics *handler.AnalyticsRecorder,
) *relay.Relay {
	r := relay.New(store, registry, cfg, logger)

	r.Subscribe(order.EventTypeConfirmed, email)
	r.Subscribe(order.EventTypeShipped, email)

	r.Subscribe(order.EventTypeShipped, inventory)
	r.Subscribe(returns.EventTypeCompleted, inventory)

	for _, eventType := range registry.Types() {
		r.Subscribe(eventType, analytics)
	}

	return r
}

func registerHooks(
	lc fx.Lifecycle,
	router *api.Router,
	dispatcher *relay.Relay,
	archiver *relay.Archiver,
	cfg *config.Config,
	logger *zap.Logger,
) {
	var relayCancel context.CancelFunc
	var archiverCancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting HTTP server", zap.String("port", cfg.Port))

			relayCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			relayCancel = cancel
			go dispatcher.Run(relayCtx)

			archiverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			archiverCancel = cancel
			go archiver.Run(archiverCtx)

			go func() {
				if err := router.Run(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server gracefully...")

			if relayCancel != nil {
				relayCancel()
			}
			if archiverCancel != nil {
				archiverCancel()
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := router.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
				return err
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		},
	})
}
