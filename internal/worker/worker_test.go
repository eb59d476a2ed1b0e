package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"basketcase/internal/amqp"
	"basketcase/internal/core"
	"basketcase/internal/kroger"
	"basketcase/internal/storage"
)

type fakeFetcher struct {
	mu     sync.Mutex
	quotes map[string]kroger.PriceQuote
	err    error
	calls  []string
}

func (f *fakeFetcher) ProductPrice(ctx context.Context, productID, locationID string) (kroger.PriceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, productID+"@"+locationID)
	if f.err != nil {
		return kroger.PriceQuote{}, f.err
	}
	q, ok := f.quotes[productID]
	if !ok {
		return kroger.PriceQuote{}, kroger.ErrNoPrice
	}
	return q, nil
}

func newWorkerRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedCatalog(t *testing.T, repo *storage.SQLiteRepository, storeID string, productIDs ...string) {
	t.Helper()
	ctx := context.Background()
	err := repo.UpsertStore(ctx, core.Store{ID: storeID, Name: "Store", Address: "1 Main St", PostalCode: "45202"})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	for _, id := range productIDs {
		if err := repo.UpsertProduct(ctx, core.Product{ID: id, Name: "Product " + id}); err != nil {
			t.Fatalf("seed product %s: %v", id, err)
		}
	}
}

func TestRefreshRecordsObservation(t *testing.T) {
	repo := newWorkerRepo(t)
	seedCatalog(t, repo, "01400441", "p1")

	promo := decimal.RequireFromString("2.99")
	fetcher := &fakeFetcher{quotes: map[string]kroger.PriceQuote{
		"p1": {ProductID: "p1", Regular: decimal.RequireFromString("3.49"), Promo: &promo},
	}}

	w := NewRefreshWorker(repo, fetcher)
	if err := w.Refresh(context.Background(), "p1", "01400441"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	obs, err := repo.LatestPrice(context.Background(), "p1", "01400441", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if obs.Price.String() != "3.49" {
		t.Errorf("recorded price = %s, want 3.49", obs.Price)
	}
	if obs.PromoPrice == nil || obs.PromoPrice.String() != "2.99" {
		t.Errorf("recorded promo = %v, want 2.99", obs.PromoPrice)
	}
}

func TestHandleRefreshMessageFailureLogged(t *testing.T) {
	repo := newWorkerRepo(t)
	seedCatalog(t, repo, "01400441", "p1")

	fetcher := &fakeFetcher{err: fmt.Errorf("api unavailable")}
	w := NewRefreshWorker(repo, fetcher)

	msg := amqp.NewPriceRefreshMessage("p1", "01400441")
	err := w.HandleRefreshMessage(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	if !errors.Is(err, fetcher.err) {
		t.Errorf("err = %v, want wrapped fetch error", err)
	}
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakePublisher) PublishPriceRefresh(ctx context.Context, productID, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, productID+"@"+storeID)
	return nil
}

func TestSchedulerPublishesAllTargets(t *testing.T) {
	repo := newWorkerRepo(t)
	seedCatalog(t, repo, "01400441", "p1", "p2")

	ctx := context.Background()
	if _, err := repo.CreateBasket(ctx, "weekly", "01400441", []core.BasketItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 2},
	}); err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}

	pub := &fakePublisher{}
	sched := NewScheduler(repo, pub, nil, time.Hour, 4)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(pub.published) != 2 {
		t.Errorf("published = %v, want both targets", pub.published)
	}
}

func TestSchedulerDirectMode(t *testing.T) {
	repo := newWorkerRepo(t)
	seedCatalog(t, repo, "01400441", "p1", "p2")

	ctx := context.Background()
	if _, err := repo.CreateBasket(ctx, "weekly", "01400441", []core.BasketItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	}); err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}

	fetcher := &fakeFetcher{quotes: map[string]kroger.PriceQuote{
		"p1": {ProductID: "p1", Regular: decimal.RequireFromString("1.00")},
		"p2": {ProductID: "p2", Regular: decimal.RequireFromString("2.00")},
	}}
	sched := NewScheduler(repo, nil, NewRefreshWorker(repo, fetcher), time.Hour, 2)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	for _, id := range []string{"p1", "p2"} {
		if _, err := repo.LatestPrice(ctx, id, "01400441", time.Now().Add(time.Minute)); err != nil {
			t.Errorf("no observation recorded for %s: %v", id, err)
		}
	}
}

func TestSchedulerDirectModeToleratesFailures(t *testing.T) {
	repo := newWorkerRepo(t)
	seedCatalog(t, repo, "01400441", "p1", "p2")

	ctx := context.Background()
	if _, err := repo.CreateBasket(ctx, "weekly", "01400441", []core.BasketItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	}); err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}

	// Only p2 has a quote; the p1 failure must not abort the cycle.
	fetcher := &fakeFetcher{quotes: map[string]kroger.PriceQuote{
		"p2": {ProductID: "p2", Regular: decimal.RequireFromString("2.00")},
	}}
	sched := NewScheduler(repo, nil, NewRefreshWorker(repo, fetcher), time.Hour, 1)
	if err := sched.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := repo.LatestPrice(ctx, "p2", "01400441", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("p2 should still be recorded: %v", err)
	}
}

func TestSchedulerNoTargets(t *testing.T) {
	repo := newWorkerRepo(t)
	pub := &fakePublisher{}
	sched := NewScheduler(repo, pub, nil, time.Hour, 4)
	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce with empty database: %v", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("published = %v, want none", pub.published)
	}
}
