package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-forms/core"
)

const formCacheKeyPrefix = "go-forms::open_form::v1"

// CachedFormStore serves open-form lookups through a read cache. Forms change
// rarely relative to submission volume; not-found results are never cached so
// a newly opened form is visible immediately.
type CachedFormStore struct {
	base  core.FormStore
	cache repositorycache.CacheService
}

func NewCachedFormStore(base core.FormStore, cacheService repositorycache.CacheService) (*CachedFormStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base form store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: form cache service is required")
	}
	return &CachedFormStore{base: base, cache: cacheService}, nil
}

// FormCacheKey returns the deterministic cache key for an open-form lookup:
// go-forms::open_form::v1::<form_id> with the id URL-path escaped.
func FormCacheKey(id string) (string, error) {
	formID := strings.TrimSpace(id)
	if formID == "" {
		return "", fmt.Errorf("sqlstore: form id is required")
	}
	return formCacheKeyPrefix + "::" + url.PathEscape(formID), nil
}

func (s *CachedFormStore) FindOpen(ctx context.Context, id string) (core.Form, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Form{}, fmt.Errorf("sqlstore: cached form store is not configured")
	}
	cacheKey, err := FormCacheKey(id)
	if err != nil {
		return core.Form{}, err
	}

	form, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Form, error) {
		return s.base.FindOpen(ctx, id)
	})
	if err != nil {
		return core.Form{}, err
	}
	return form, nil
}

// Invalidate drops the cached entry for a form, for use after admin edits.
func (s *CachedFormStore) Invalidate(ctx context.Context, id string) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached form store is not configured")
	}
	cacheKey, err := FormCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.FormStore = (*CachedFormStore)(nil)
