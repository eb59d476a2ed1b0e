// Command price-worker consumes price refresh messages from the queue,
// fetches current prices from the Kroger API and appends them to the
// price ledger.
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
	logger := cli.SetupLogger(log.ComponentWorker)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL must be set for the price worker")
		return
	}
	if err := cfg.RequireKrogerCredentials(); err != nil {
		logger.Error("Missing Kroger credentials", "error", err)
		return
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	api, err := kroger.NewClient(context.Background(), cfg.KrogerBaseURL, cfg.KrogerClientID, cfg.KrogerClientSecret)
	if err != nil {
		logger.Error("Failed to create Kroger client", "error", err)
		return
	}

	queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		return
	}
	defer queue.Close()

	refresher := worker.NewRefreshWorker(repo, api)

	ctx := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Price worker started", "queue", cfg.AMQPQueue)
	if err := queue.ConsumePriceRefresh(ctx, func(msg *amqp.PriceRefreshMessage) error {
		return refresher.HandleRefreshMessage(ctx, msg)
	}); err != nil && err != context.Canceled {
		logger.Error("Consumer stopped", "error", err)
	}
	logger.Info("Price worker stopped")
}
