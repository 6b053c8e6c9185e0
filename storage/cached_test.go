package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arvik/shopsearch/internal/recordcache"
	"github.com/arvik/shopsearch/storage"
)

// countingRepo is a fake base repository tracking how often each method
// reaches the backing store.
type countingRepo struct {
	mu      sync.Mutex
	records map[int64]storage.Product
	nextID  int64
	calls   map[string]int
	fail    error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{
		records: make(map[int64]storage.Product),
		calls:   make(map[string]int),
	}
}

func (r *countingRepo) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *countingRepo) GetByID(_ context.Context, id int64) (storage.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetByID"]++
	p, ok := r.records[id]
	if !ok {
		return storage.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (r *countingRepo) List(_ context.Context) ([]storage.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["List"]++
	out := make([]storage.Product, 0, len(r.records))
	for _, p := range r.records {
		out = append(out, p)
	}
	return out, nil
}

func (r *countingRepo) Create(_ context.Context, record storage.Product) (storage.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Create"]++
	if r.fail != nil {
		return storage.Product{}, r.fail
	}
	r.nextID++
	record.ID = r.nextID
	r.records[record.ID] = record
	return record, nil
}

func (r *countingRepo) Update(_ context.Context, record storage.Product) (storage.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Update"]++
	r.records[record.ID] = record
	return record, nil
}

func (r *countingRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Delete"]++
	delete(r.records, id)
	return nil
}

// countingInvalidator records search-cache invalidations.
type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (i *countingInvalidator) Invalidate(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	return nil
}

func (i *countingInvalidator) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

func newCachedRepo(t *testing.T, base storage.Repository[storage.Product], inv storage.Invalidator) *storage.CachedRepository[storage.Product] {
	t.Helper()
	records, err := recordcache.New(recordcache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return storage.NewCached[storage.Product](storage.EntityProduct, base, records, inv, nil)
}

func TestCachedRepository_GetByIDHitsCache(t *testing.T) {
	base := newCountingRepo()
	cached := newCachedRepo(t, base, nil)
	ctx := context.Background()

	created, err := cached.Create(ctx, storage.Product{Name: "product1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := cached.GetByID(ctx, created.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := base.count("GetByID"); got != 1 {
		t.Errorf("expected 1 backing read, got %d", got)
	}
}

func TestCachedRepository_WriteInvalidatesRecordCache(t *testing.T) {
	base := newCountingRepo()
	cached := newCachedRepo(t, base, nil)
	ctx := context.Background()

	created, err := cached.Create(ctx, storage.Product{Name: "product1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cached.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	created.Stock = 9
	if _, err := cached.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The cached read was dropped, so this goes back to the base.
	if _, err := cached.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := base.count("GetByID"); got != 2 {
		t.Errorf("expected refetch after write, got %d backing reads", got)
	}
}

func TestCachedRepository_NotifiesSearchInvalidatorOncePerWrite(t *testing.T) {
	base := newCountingRepo()
	inv := &countingInvalidator{}
	cached := newCachedRepo(t, base, inv)
	ctx := context.Background()

	created, err := cached.Create(ctx, storage.Product{Name: "product1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.count() != 1 {
		t.Errorf("expected 1 invalidation after create, got %d", inv.count())
	}

	if _, err := cached.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := cached.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if inv.count() != 3 {
		t.Errorf("expected 3 invalidations after create+update+delete, got %d", inv.count())
	}
}

func TestCachedRepository_FailedWriteDoesNotInvalidate(t *testing.T) {
	base := newCountingRepo()
	base.fail = errors.New("constraint violation")
	inv := &countingInvalidator{}
	cached := newCachedRepo(t, base, inv)

	if _, err := cached.Create(context.Background(), storage.Product{Name: "p"}); err == nil {
		t.Fatal("expected create failure")
	}
	if inv.count() != 0 {
		t.Errorf("failed write must not invalidate, got %d calls", inv.count())
	}
}
