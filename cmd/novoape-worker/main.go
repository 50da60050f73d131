package main

import (
	"context"
	"errors"
	"os"
	"time"

	"novoape/internal/amqp"
	"novoape/internal/cli"
	"novoape/internal/log"
	"novoape/internal/metrics"
	"novoape/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting novoape-worker", log.FieldBackend, cfg.DataBackend)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the replay worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	replayer := worker.NewReplayer(res.Store, metrics.New(), logger, cfg.ReplayMaxAge)

	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	consumed := make(chan struct{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		stopConsuming()
		select {
		case <-consumed:
		case <-ctx.Done():
		}
		_ = amqpClient.Close()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err.Error())
			}
		}
	})

	go func() {
		defer close(consumed)
		err := amqpClient.ConsumeWriteFailed(consumeCtx, replayer.HandleWriteFailed)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
			os.Exit(1)
		}
	}()

	logger.Info("Replaying failed writes",
		"queue", cfg.AMQPQueue,
		"max_age", cfg.ReplayMaxAge)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
