package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"basketcase/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedStore(t *testing.T, repo *SQLiteRepository, id string) {
	t.Helper()
	err := repo.UpsertStore(context.Background(), core.Store{
		ID:         id,
		Name:       "Store " + id,
		Address:    "1 Main St",
		PostalCode: "45202",
	})
	if err != nil {
		t.Fatalf("seed store %s: %v", id, err)
	}
}

func seedProduct(t *testing.T, repo *SQLiteRepository, id string, categoryID *int64) {
	t.Helper()
	err := repo.UpsertProduct(context.Background(), core.Product{
		ID:         id,
		Name:       "Product " + id,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func recordPrice(t *testing.T, repo *SQLiteRepository, productID, storeID, price string, capturedAt time.Time) {
	t.Helper()
	err := repo.RecordPrice(context.Background(), core.PriceObservation{
		ProductID:  productID,
		StoreID:    storeID,
		Price:      decimal.RequireFromString(price),
		CapturedAt: capturedAt,
	})
	if err != nil {
		t.Fatalf("record price %s: %v", price, err)
	}
}

func TestBasePricePolicy(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)

	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// An observation before the anchor must never become the base.
	recordPrice(t, repo, "p1", "s1", "1.50", created.Add(-48*time.Hour))
	recordPrice(t, repo, "p1", "s1", "2.00", created.Add(time.Hour))
	recordPrice(t, repo, "p1", "s1", "2.50", created.Add(24*time.Hour))

	base, err := repo.BasePrice(ctx, "p1", "s1", created)
	if err != nil {
		t.Fatalf("BasePrice: %v", err)
	}
	if base.Price.String() != "2" {
		t.Errorf("base price = %s, want 2 (earliest at or after anchor)", base.Price)
	}
}

func TestBasePriceTieBreak(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recordPrice(t, repo, "p1", "s1", "3.00", at)
	recordPrice(t, repo, "p1", "s1", "4.00", at)

	base, err := repo.BasePrice(ctx, "p1", "s1", at)
	if err != nil {
		t.Fatalf("BasePrice: %v", err)
	}
	if base.Price.String() != "3" {
		t.Errorf("base price = %s, want 3 (first inserted wins the tie)", base.Price)
	}

	latest, err := repo.LatestPrice(ctx, "p1", "s1", at)
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if latest.Price.String() != "4" {
		t.Errorf("latest price = %s, want 4 (last inserted wins the tie)", latest.Price)
	}
}

func TestLatestPriceRespectsAsOf(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)

	day := 24 * time.Hour
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recordPrice(t, repo, "p1", "s1", "1.00", start)
	recordPrice(t, repo, "p1", "s1", "1.10", start.Add(7*day))
	recordPrice(t, repo, "p1", "s1", "1.20", start.Add(14*day))

	obs, err := repo.LatestPrice(ctx, "p1", "s1", start.Add(10*day))
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if obs.Price.String() != "1.1" {
		t.Errorf("price as of day 10 = %s, want 1.1", obs.Price)
	}

	if _, err := repo.LatestPrice(ctx, "p1", "s1", start.Add(-day)); !errors.Is(err, core.ErrMissingPriceData) {
		t.Errorf("LatestPrice before first observation: err = %v, want ErrMissingPriceData", err)
	}
	if _, err := repo.BasePrice(ctx, "p1", "s1", start.Add(30*day)); !errors.Is(err, core.ErrMissingPriceData) {
		t.Errorf("BasePrice after last observation: err = %v, want ErrMissingPriceData", err)
	}
}

func TestRecordPriceRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)

	promo := decimal.RequireFromString("5.00")
	err := repo.RecordPrice(ctx, core.PriceObservation{
		ProductID:  "p1",
		StoreID:    "s1",
		Price:      decimal.RequireFromString("2.00"),
		PromoPrice: &promo,
		CapturedAt: time.Now(),
	})
	if !errors.Is(err, core.ErrInvalidPromo) {
		t.Errorf("promo above regular: err = %v, want ErrInvalidPromo", err)
	}

	err = repo.RecordPrice(ctx, core.PriceObservation{
		ProductID:  "p1",
		StoreID:    "s1",
		Price:      decimal.Zero,
		CapturedAt: time.Now(),
	})
	if !errors.Is(err, core.ErrInvalidPrice) {
		t.Errorf("zero price: err = %v, want ErrInvalidPrice", err)
	}
}

func TestRecordPriceConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")

	const writers = 8
	for i := 0; i < writers; i++ {
		seedProduct(t, repo, fmt.Sprintf("p%d", i), nil)
	}

	// Parallel writers must all land; none may be dropped with SQLITE_BUSY.
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			errs <- repo.RecordPrice(ctx, core.PriceObservation{
				ProductID:  fmt.Sprintf("p%d", i),
				StoreID:    "s1",
				Price:      decimal.RequireFromString("1.99"),
				CapturedAt: time.Now(),
			})
		}(i)
	}
	for i := 0; i < writers; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent RecordPrice: %v", err)
		}
	}

	var count int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM price_history`).Scan(&count); err != nil {
		t.Fatalf("count price_history: %v", err)
	}
	if count != writers {
		t.Errorf("recorded observations = %d, want %d", count, writers)
	}
}

func TestBasketLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)
	seedProduct(t, repo, "p2", nil)

	basket, err := repo.CreateBasket(ctx, "weekly", "s1", nil)
	if err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}
	if !basket.IsTemplate {
		t.Error("new basket should be a template")
	}

	if err := repo.AddItem(ctx, basket.ID, "p1", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.AddItem(ctx, basket.ID, "p1", 1); !errors.Is(err, core.ErrDuplicateItem) {
		t.Errorf("duplicate AddItem: err = %v, want ErrDuplicateItem", err)
	}
	if err := repo.AddItem(ctx, basket.ID, "p2", 0); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("zero quantity: err = %v, want ErrInvalidQuantity", err)
	}

	if err := repo.UpdateQuantity(ctx, basket.ID, "p1", 5); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if err := repo.UpdateQuantity(ctx, basket.ID, "p2", 5); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateQuantity missing item: err = %v, want ErrNotFound", err)
	}

	if err := repo.SaveBasket(ctx, basket.ID); err != nil {
		t.Fatalf("SaveBasket: %v", err)
	}
	// Saving twice is a no-op.
	if err := repo.SaveBasket(ctx, basket.ID); err != nil {
		t.Fatalf("second SaveBasket: %v", err)
	}

	if err := repo.AddItem(ctx, basket.ID, "p2", 1); !errors.Is(err, core.ErrBasketImmutable) {
		t.Errorf("AddItem after save: err = %v, want ErrBasketImmutable", err)
	}
	if err := repo.RemoveItem(ctx, basket.ID, "p1"); !errors.Is(err, core.ErrBasketImmutable) {
		t.Errorf("RemoveItem after save: err = %v, want ErrBasketImmutable", err)
	}
	if err := repo.UpdateQuantity(ctx, basket.ID, "p1", 1); !errors.Is(err, core.ErrBasketImmutable) {
		t.Errorf("UpdateQuantity after save: err = %v, want ErrBasketImmutable", err)
	}

	items, err := repo.ListItems(ctx, basket.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "p1" || items[0].Quantity != 5 {
		t.Errorf("items = %+v, want single p1 with quantity 5", items)
	}
}

func TestBasketItemCap(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")

	var items []core.BasketItem
	for i := 0; i < core.MaxBasketItems; i++ {
		id := fmt.Sprintf("p%03d", i)
		seedProduct(t, repo, id, nil)
		items = append(items, core.BasketItem{ProductID: id, Quantity: 1})
	}
	seedProduct(t, repo, "overflow", nil)

	basket, err := repo.CreateBasket(ctx, "full", "s1", items)
	if err != nil {
		t.Fatalf("CreateBasket with %d items: %v", core.MaxBasketItems, err)
	}

	if err := repo.AddItem(ctx, basket.ID, "overflow", 1); !errors.Is(err, core.ErrBasketTooLarge) {
		t.Errorf("item %d: err = %v, want ErrBasketTooLarge", core.MaxBasketItems+1, err)
	}

	got, err := repo.ListItems(ctx, basket.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(got) != core.MaxBasketItems {
		t.Errorf("item count after failed add = %d, want %d", len(got), core.MaxBasketItems)
	}

	over := append(items, core.BasketItem{ProductID: "overflow", Quantity: 1})
	if _, err := repo.CreateBasket(ctx, "too big", "s1", over); !errors.Is(err, core.ErrBasketTooLarge) {
		t.Errorf("CreateBasket with %d items: err = %v, want ErrBasketTooLarge", len(over), err)
	}
}

func TestCloneBasket(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedProduct(t, repo, "p1", nil)
	seedProduct(t, repo, "p2", nil)

	source, err := repo.CreateBasket(ctx, "original", "s1", []core.BasketItem{
		{ProductID: "p1", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}
	if err := repo.SaveBasket(ctx, source.ID); err != nil {
		t.Fatalf("SaveBasket: %v", err)
	}

	clone, err := repo.CloneBasket(ctx, source.ID, "revised")
	if err != nil {
		t.Fatalf("CloneBasket: %v", err)
	}
	if clone.ParentID == nil || *clone.ParentID != source.ID {
		t.Errorf("clone parent = %v, want %d", clone.ParentID, source.ID)
	}
	if clone.StoreID != source.StoreID {
		t.Errorf("clone store = %s, want %s", clone.StoreID, source.StoreID)
	}
	if !clone.IsTemplate {
		t.Error("clone should be a template even when the source is saved")
	}

	// Editing the clone must not touch the source.
	if err := repo.AddItem(ctx, clone.ID, "p2", 1); err != nil {
		t.Fatalf("AddItem on clone: %v", err)
	}
	sourceItems, err := repo.ListItems(ctx, source.ID)
	if err != nil {
		t.Fatalf("ListItems source: %v", err)
	}
	if len(sourceItems) != 1 {
		t.Errorf("source items = %d, want 1", len(sourceItems))
	}
	cloneItems, err := repo.ListItems(ctx, clone.ID)
	if err != nil {
		t.Fatalf("ListItems clone: %v", err)
	}
	if len(cloneItems) != 2 {
		t.Errorf("clone items = %d, want 2", len(cloneItems))
	}

	if _, err := repo.CloneBasket(ctx, 9999, "ghost"); !errors.Is(err, core.ErrSourceNotFound) {
		t.Errorf("clone of missing basket: err = %v, want ErrSourceNotFound", err)
	}
}

func TestUpsertCategoryCycleRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	root, err := repo.UpsertCategory(ctx, core.Category{Name: "Dairy"})
	if err != nil {
		t.Fatalf("UpsertCategory root: %v", err)
	}
	child, err := repo.UpsertCategory(ctx, core.Category{Name: "Milk", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("UpsertCategory child: %v", err)
	}

	// Re-parenting the root under its own child would close a loop.
	if _, err := repo.UpsertCategory(ctx, core.Category{Name: "Dairy", ParentID: &child.ID}); err == nil {
		t.Error("expected cycle to be rejected")
	}

	chain, err := repo.Ancestors(ctx, child.ID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != child.ID || chain[1].ID != root.ID {
		t.Errorf("ancestor chain = %+v, want [Milk, Dairy]", chain)
	}
}

func TestCategoryOf(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.UpsertCategory(ctx, core.Category{Name: "Produce"})
	if err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}
	seedProduct(t, repo, "apple", &cat.ID)
	seedProduct(t, repo, "mystery", nil)

	got, err := repo.CategoryOf(ctx, "apple")
	if err != nil {
		t.Fatalf("CategoryOf: %v", err)
	}
	if got == nil || got.Name != "Produce" {
		t.Errorf("category = %+v, want Produce", got)
	}

	got, err = repo.CategoryOf(ctx, "mystery")
	if err != nil {
		t.Fatalf("CategoryOf uncategorized: %v", err)
	}
	if got != nil {
		t.Errorf("uncategorized product: category = %+v, want nil", got)
	}

	if _, err := repo.CategoryOf(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CategoryOf missing product: err = %v, want ErrNotFound", err)
	}
}

func TestIndexHistoryOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")

	basket, err := repo.CreateBasket(ctx, "b", "s1", nil)
	if err != nil {
		t.Fatalf("CreateBasket: %v", err)
	}
	cat, err := repo.UpsertCategory(ctx, core.Category{Name: "Bakery"})
	if err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	first := base.Add(7 * 24 * time.Hour)
	second := base.Add(14 * 24 * time.Hour)

	// Two calculations, each with a whole-basket and a category row.
	for _, calc := range []time.Time{second, first} {
		err := repo.AppendIndices(ctx, []core.InflationIndex{
			{BasketID: basket.ID, CategoryID: &cat.ID, BaseDate: base, Value: decimal.RequireFromString("101.5"), CalculatedAt: calc},
			{BasketID: basket.ID, BaseDate: base, Value: decimal.RequireFromString("102"), CalculatedAt: calc},
		})
		if err != nil {
			t.Fatalf("AppendIndices: %v", err)
		}
	}

	history, err := repo.IndexHistory(ctx, basket.ID)
	if err != nil {
		t.Fatalf("IndexHistory: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history rows = %d, want 4", len(history))
	}
	if !history[0].CalculatedAt.Equal(first) || !history[1].CalculatedAt.Equal(first) {
		t.Error("oldest calculation should come first")
	}
	if history[0].CategoryID != nil {
		t.Error("whole-basket row should precede category rows within a calculation")
	}
	if history[1].CategoryID == nil || *history[1].CategoryID != cat.ID {
		t.Errorf("second row category = %v, want %d", history[1].CategoryID, cat.ID)
	}
}

func TestActivePriceTargets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")
	seedStore(t, repo, "s2")
	seedProduct(t, repo, "p1", nil)
	seedProduct(t, repo, "p2", nil)

	if _, err := repo.CreateBasket(ctx, "a", "s1", []core.BasketItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	}); err != nil {
		t.Fatalf("CreateBasket a: %v", err)
	}
	// Same product at the same store in a second basket must not duplicate
	// the target; the same product at another store must.
	if _, err := repo.CreateBasket(ctx, "b", "s1", []core.BasketItem{
		{ProductID: "p1", Quantity: 3},
	}); err != nil {
		t.Fatalf("CreateBasket b: %v", err)
	}
	if _, err := repo.CreateBasket(ctx, "c", "s2", []core.BasketItem{
		{ProductID: "p1", Quantity: 1},
	}); err != nil {
		t.Fatalf("CreateBasket c: %v", err)
	}

	targets, err := repo.ActivePriceTargets(ctx)
	if err != nil {
		t.Fatalf("ActivePriceTargets: %v", err)
	}
	want := []PriceTarget{
		{ProductID: "p1", StoreID: "s1"},
		{ProductID: "p2", StoreID: "s1"},
		{ProductID: "p1", StoreID: "s2"},
	}
	if len(targets) != len(want) {
		t.Fatalf("targets = %+v, want %+v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("target[%d] = %+v, want %+v", i, targets[i], want[i])
		}
	}
}

func TestUpsertStorePreservesCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedStore(t, repo, "s1")

	before, err := repo.GetStore(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStore: %v", err)
	}

	err = repo.UpsertStore(ctx, core.Store{ID: "s1", Name: "Renamed", Address: "2 Oak Ave", PostalCode: "45202"})
	if err != nil {
		t.Fatalf("second UpsertStore: %v", err)
	}
	after, err := repo.GetStore(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStore: %v", err)
	}
	if after.Name != "Renamed" {
		t.Errorf("name = %s, want Renamed", after.Name)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed on upsert: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
}

func TestLogError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.LogError(ctx, "ERROR", "test", "something broke", "stack"); err != nil {
		t.Fatalf("LogError: %v", err)
	}
	var count int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM error_logs`).Scan(&count); err != nil {
		t.Fatalf("count error_logs: %v", err)
	}
	if count != 1 {
		t.Errorf("error_logs rows = %d, want 1", count)
	}
}
