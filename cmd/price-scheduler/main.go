// Command price-scheduler enumerates every (product, store) pair
// referenced by a basket and requests a price refresh on a recurring
// cadence. With AMQP configured it publishes refresh messages for the
// price worker; without it, it fetches prices itself with bounded
// concurrency.
package main

import (
	"context"
	"time"

	"basketcase/internal/amqp"
	"basketcase/internal/cli"
	"basketcase/internal/kroger"
	"basketcase/internal/log"
	"basketcase/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentScheduler)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var (
		publisher worker.RefreshPublisher
		refresher *worker.RefreshWorker
	)
	if cfg.AMQPURL != "" {
		queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			return
		}
		defer queue.Close()
		publisher = queue
		logger.Info("Scheduling through queue", "queue", cfg.AMQPQueue)
	} else {
		if err := cfg.RequireKrogerCredentials(); err != nil {
			logger.Error("Missing Kroger credentials for direct mode", "error", err)
			return
		}
		api, err := kroger.NewClient(context.Background(), cfg.KrogerBaseURL, cfg.KrogerClientID, cfg.KrogerClientSecret)
		if err != nil {
			logger.Error("Failed to create Kroger client", "error", err)
			return
		}
		refresher = worker.NewRefreshWorker(repo, api)
		logger.Info("Scheduling in direct mode", "concurrency", cfg.FetchConcurrency)
	}

	sched := worker.NewScheduler(repo, publisher, refresher, cfg.RefreshInterval, cfg.FetchConcurrency)

	ctx := cli.GracefulShutdown(logger, 10*time.Second, nil)
	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Scheduler stopped", "error", err)
	}
	logger.Info("Price scheduler stopped")
}
