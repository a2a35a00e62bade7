package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"publink/internal/link/models"
)

// CachedLinkStore decorates a LinkStore with a Redis read-through cache on
// the short code lookup, the one query on the redirect hot path. Mutations
// write through to the inner store and invalidate the cached entry; cache
// failures degrade to the inner store and are logged, never surfaced.
type CachedLinkStore struct {
	inner  LinkStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedLinkStore(inner LinkStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedLinkStore {
	return &CachedLinkStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(shortCode string) string {
	return "link:code:" + shortCode
}

func (s *CachedLinkStore) FindByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	key := cacheKey(shortCode)
	payload, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var l models.Link
		if err := json.Unmarshal(payload, &l); err == nil {
			return &l, nil
		}
		// Corrupt entry, drop it and fall through to the store.
		s.client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("link cache read failed", "short_code", shortCode, "error", err)
	}

	l, err := s.inner.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, l)
	return l, nil
}

func (s *CachedLinkStore) Create(ctx context.Context, l *models.Link) error {
	if err := s.inner.Create(ctx, l); err != nil {
		return err
	}
	s.cache(ctx, l)
	return nil
}

func (s *CachedLinkStore) Update(ctx context.Context, l *models.Link) error {
	// Fetch the current row first: a short code change must invalidate the
	// old key, not just the new one.
	prev, err := s.inner.FindByID(ctx, l.ID)
	if err == nil && prev.ShortCode != l.ShortCode {
		s.invalidate(ctx, prev.ShortCode)
	}
	if err := s.inner.Update(ctx, l); err != nil {
		return err
	}
	s.invalidate(ctx, l.ShortCode)
	return nil
}

func (s *CachedLinkStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	return s.inner.FindByID(ctx, id)
}

// IncrementClickCount bypasses the cache: cached entries serve redirects,
// and a slightly stale click count on the hot path is acceptable.
func (s *CachedLinkStore) IncrementClickCount(ctx context.Context, id uuid.UUID) error {
	return s.inner.IncrementClickCount(ctx, id)
}

func (s *CachedLinkStore) cache(ctx context.Context, l *models.Link) {
	payload, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKey(l.ShortCode), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("link cache write failed", "short_code", l.ShortCode, "error", err)
	}
}

func (s *CachedLinkStore) invalidate(ctx context.Context, shortCode string) {
	if err := s.client.Del(ctx, cacheKey(shortCode)).Err(); err != nil {
		s.logger.Warn("link cache invalidation failed", "short_code", shortCode, "error", err)
	}
}

var _ LinkStore = (*CachedLinkStore)(nil)

// WrapWithCache returns the inner store untouched when no Redis client is
// configured.
func WrapWithCache(inner LinkStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) LinkStore {
	if client == nil {
		return inner
	}
	return NewCachedLinkStore(inner, client, ttl, logger)
}
