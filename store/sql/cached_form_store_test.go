package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-forms/core"
)

type stubFormStore struct {
	mu        sync.Mutex
	form      core.Form
	findErr   error
	findCalls int
}

func (s *stubFormStore) FindOpen(_ context.Context, _ string) (core.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return core.Form{}, s.findErr
	}
	return s.form, nil
}

func (s *stubFormStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

func newTestFormCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedFormStore_FindOpen_MissFetchThenHit(t *testing.T) {
	cacheService := newTestFormCacheService(t)
	base := &stubFormStore{
		form: core.Form{
			ID:       "f-cache-1",
			Name:     "Survey",
			Features: core.FeatureSet{core.FeatureOpen},
		},
	}

	store, err := NewCachedFormStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached form store: %v", err)
	}

	if _, err := store.FindOpen(context.Background(), "f-cache-1"); err != nil {
		t.Fatalf("first find: %v", err)
	}
	if base.calls() != 1 {
		t.Fatalf("expected first find to hit base store once, got %d", base.calls())
	}

	form, err := store.FindOpen(context.Background(), "f-cache-1")
	if err != nil {
		t.Fatalf("second find: %v", err)
	}
	if base.calls() != 1 {
		t.Fatalf("expected second find to be a cache hit, base calls=%d", base.calls())
	}
	if form.Name != "Survey" {
		t.Fatalf("unexpected form %#v", form)
	}
}

func TestCachedFormStore_NotFoundIsNotCached(t *testing.T) {
	cacheService := newTestFormCacheService(t)
	base := &stubFormStore{findErr: core.ErrFormNotFound}

	store, err := NewCachedFormStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached form store: %v", err)
	}

	if _, err := store.FindOpen(context.Background(), "f-cache-2"); err == nil {
		t.Fatalf("expected not-found error")
	}

	base.mu.Lock()
	base.findErr = nil
	base.form = core.Form{ID: "f-cache-2", Features: core.FeatureSet{core.FeatureOpen}}
	base.mu.Unlock()

	if _, err := store.FindOpen(context.Background(), "f-cache-2"); err != nil {
		t.Fatalf("expected newly opened form to be visible, got %v", err)
	}
}

func TestCachedFormStore_InvalidateDropsEntry(t *testing.T) {
	cacheService := newTestFormCacheService(t)
	base := &stubFormStore{
		form: core.Form{ID: "f-cache-3", Name: "Before", Features: core.FeatureSet{core.FeatureOpen}},
	}

	store, err := NewCachedFormStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached form store: %v", err)
	}

	if _, err := store.FindOpen(context.Background(), "f-cache-3"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	base.mu.Lock()
	base.form.Name = "After"
	base.mu.Unlock()

	if err := store.Invalidate(context.Background(), "f-cache-3"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	form, err := store.FindOpen(context.Background(), "f-cache-3")
	if err != nil {
		t.Fatalf("find after invalidate: %v", err)
	}
	if form.Name != "After" {
		t.Fatalf("expected refreshed form, got %q", form.Name)
	}
	if base.calls() != 2 {
		t.Fatalf("expected 2 base fetches, got %d", base.calls())
	}
}
