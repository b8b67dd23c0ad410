package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-desk/internal/api/http"
	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := map[string]handlers.Pinger{}

	var ticketRepo repository.TicketRepository
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	switch {
	case errors.Is(err, persistence.ErrPostgresNotConfigured):
		logger.Warn("POSTGRES_DSN not provided; tickets are kept in memory")
		ticketRepo = repository.NewMemoryTicketRepository()
	case err != nil:
		logger.Fatal("failed to connect postgres", zap.Error(err))
	default:
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
		health["postgres"] = pg
	}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if cfg.Session.UseRedis {
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unreachable; sessions are kept in memory", zap.Error(err))
		} else {
			defer redis.Close()
			sessions = auth.NewRedisSessionStore(redis.Client, redis.KeyPrefix)
			health["redis"] = redis
		}
	} else {
		logger.Warn("SESSION_USE_REDIS disabled; sessions are kept in memory")
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	identityService := service.NewIdentityService(domain.Directory{
		Reporters: cfg.Identity.Reporters,
		Admins:    cfg.Identity.Admins,
	})

	app, err := httptransport.NewServer(httptransport.ServerDependencies{
		App:        cfg.App,
		Session:    cfg.Session,
		Logger:     logger,
		Metrics:    observability.NewMetrics("ticket_desk"),
		Tickets:    ticketService,
		Identities: identityService,
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Sessions:   sessions,
		Health:     health,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
