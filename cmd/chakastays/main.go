package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	authsvc "chakastays/internal/app/services/auth"
	"chakastays/internal/infra/config"
	ginserver "chakastays/internal/infra/http/gin"
	"chakastays/internal/infra/obs"
	"chakastays/internal/infra/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("chakastays stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close(context.Background())

	caller := remote.NewCaller(remote.Options{
		Name:        "dataservice",
		Timeout:     cfg.RemoteTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenFor:     cfg.BreakerOpenFor,
		Logger:      logger,
	})
	gw := support.Gateway{Data: be.Data, Remote: caller, Now: time.Now}

	files, err := openFiles(cfg, logger)
	if err != nil {
		return err
	}

	b, err := buildBuses(cfg, wiring{
		Data:        be.Data,
		Gateway:     gw,
		Outbox:      be.Outbox,
		Idempotency: be.Idempotency,
		Files:       files,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	be.Subscribe(b.Trigger)

	auth := &authsvc.Service{
		Users:      be.Data.Users(),
		Sessions:   be.Data.Sessions(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	if cfg.AdminEmail != "" {
		if _, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword); err != nil {
			return err
		}
		logger.Info("admin account ensured", "email", cfg.AdminEmail)
	}
	if cfg.FixturesPath != "" {
		if err := loadFixtures(ctx, cfg.FixturesPath, be.Data, auth, cfg.Currency, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: be.Data.Ping,
	}, ginserver.Handlers{
		Property: ginserver.PropertyHandler{Queries: b.Queries, Logger: logger},
		Booking:  ginserver.BookingHandler{Commands: b.Commands, Queries: b.Queries, Logger: logger},
		Host:     ginserver.HostHandler{Commands: b.Commands, Queries: b.Queries, Logger: logger},
		Me:       ginserver.MeHandler{Commands: b.Commands, Queries: b.Queries, Logger: logger},
		Admin:    ginserver.AdminHandler{Commands: b.Commands, Logger: logger},
		Auth:     ginserver.AuthHandler{Service: auth, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Resolver: auth,
			Logger:   logger,
		}.Handle,
	})

	var wg sync.WaitGroup
	for name, task := range be.Background {
		wg.Add(1)
		go func(name string, task func(context.Context) error) {
			defer wg.Done()
			if err := task(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}(name, task)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "backend", cfg.DataBackend, "kafka", cfg.KafkaEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("background tasks did not stop in time")
	}
	logger.Info("HTTP server stopped")
	return nil
}
