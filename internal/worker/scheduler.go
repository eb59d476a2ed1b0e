package worker

import (
	"context"
	"log/slog"
	"time"

	"basketcase/internal/storage"

	"golang.org/x/sync/errgroup"
)

// RefreshPublisher is the slice of the AMQP client the scheduler needs.
type RefreshPublisher interface {
	PublishPriceRefresh(ctx context.Context, productID, storeID string) error
}

// Scheduler periodically enumerates every (product, store) pair referenced
// by a basket and requests a price refresh for each. With a publisher the
// requests go through the queue; without one (queue disabled) the scheduler
// refreshes directly with bounded concurrency.
type Scheduler struct {
	storage     *storage.SQLiteRepository
	publisher   RefreshPublisher
	worker      *RefreshWorker
	interval    time.Duration
	concurrency int
}

func NewScheduler(db *storage.SQLiteRepository, publisher RefreshPublisher, worker *RefreshWorker, interval time.Duration, concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		storage:     db,
		publisher:   publisher,
		worker:      worker,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run refreshes once immediately, then on every tick until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Price scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "Price refresh cycle failed", "error", err)
			if logErr := s.storage.LogError(ctx, "ERROR", "scheduler", "price refresh cycle failed", err.Error()); logErr != nil {
				slog.ErrorContext(ctx, "Failed to write error log", "error", logErr)
			}
		}
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Price scheduler stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce requests a refresh for every active (product, store) pair.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	targets, err := s.storage.ActivePriceTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		slog.InfoContext(ctx, "No active price targets")
		return nil
	}

	if s.publisher != nil {
		published := 0
		for _, t := range targets {
			if err := s.publisher.PublishPriceRefresh(ctx, t.ProductID, t.StoreID); err != nil {
				slog.ErrorContext(ctx, "Failed to publish refresh",
					"product_id", t.ProductID,
					"store_id", t.StoreID,
					"error", err)
				continue
			}
			published++
		}
		slog.InfoContext(ctx, "Price refresh cycle published", "targets", len(targets), "published", published)
		return nil
	}

	// Direct mode: fetch and record here, a few products at a time.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if err := s.worker.Refresh(gctx, t.ProductID, t.StoreID); err != nil {
				// One failed product must not abort the cycle.
				slog.ErrorContext(gctx, "Failed to refresh price",
					"product_id", t.ProductID,
					"store_id", t.StoreID,
					"error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Price refresh cycle completed", "targets", len(targets))
	return nil
}
