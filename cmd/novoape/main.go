package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"novoape/internal/amqp"
	"novoape/internal/cache"
	"novoape/internal/cli"
	"novoape/internal/core"
	apphttp "novoape/internal/http"
	"novoape/internal/identity"
	"novoape/internal/log"
	"novoape/internal/metrics"
	"novoape/internal/persist"
	"novoape/internal/session"
)

const (
	demoEmail    = "demo@novoape.local"
	demoPassword = "demo1234"
)

func main() {
	cfg, logger := cli.LoadConfig()
	logger.Info("Starting novoape server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend)

	res := cli.InitBackend(context.Background(), logger, cfg)
	m := metrics.New()

	opts := []persist.Option{persist.WithLogger(logger), persist.WithMetrics(m)}
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		opts = append(opts, persist.WithSink(amqp.NewSink(amqpClient)))
		logger.Info("Failed writes will be queued for replay", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - failed writes are only logged")
	}
	store := persist.New(res.Store, opts...)

	sessions := session.NewManager(store, session.ManagerConfig{
		MaxSessions: cfg.SessionMax,
		TTL:         cfg.SessionTTL,
		Metrics:     m,
		Logger:      logger,
	})
	caches := cache.NewManager(logger)
	caches.Register(sessions.Cache())
	caches.StartCleanup(time.Minute)

	accounts := identity.NewPasswordProvider(res.Store, logger)
	if cfg.SeedDemo {
		seedDemo(context.Background(), logger, accounts, store)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute:     cfg.RateLimitPerMinute,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
	}, apphttp.Deps{
		Sessions: sessions,
		Identity: accounts,
		Tokens:   identity.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:  m,
		Logger:   logger,
		Ready:    res.Ping,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		sessions.Wait()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err.Error())
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// seedDemo creates the demo account and fills its project with sample data
// unless the account already exists.
func seedDemo(ctx context.Context, logger *log.Logger, accounts *identity.PasswordProvider, store *persist.Adapter) {
	user, err := accounts.SignUp(ctx, "Demo", demoEmail, demoPassword)
	if errors.Is(err, identity.ErrEmailInUse) {
		logger.Debug("Demo account already exists", "email", demoEmail)
		return
	}
	if err != nil {
		logger.Warn("Failed to create demo account", log.FieldError, err.Error())
		return
	}
	if err := store.SaveSnapshot(ctx, user.ID, core.SampleProject()); err != nil {
		logger.Warn("Failed to seed demo project", log.FieldError, err.Error())
		return
	}
	logger.Info("Demo project seeded", "email", demoEmail, log.FieldUserID, user.ID)
}
