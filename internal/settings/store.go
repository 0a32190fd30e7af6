package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort defines data access methods for settings.
type RepositoryPort interface {
	Get(ctx context.Context, key string) (Setting, error)
	List(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, s Setting) error
}

// Store reads settings through a short-TTL in-process cache. It is an
// injected instance, never a package-level static, so concurrent runtimes
// and tests each get their own cache. A value written by an admin becomes
// visible once the cached entry expires; in-flight requests keep seeing the
// value they started with.
type Store struct {
	repo   RepositoryPort
	ttl    time.Duration
	logger *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	setting Setting
	err     error
	loaded  time.Time
}

// NewStore constructs a Store. A non-positive ttl disables caching.
func NewStore(repo RepositoryPort, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:    repo,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Lookup returns the setting for key, going through the cache. Misses are
// cached as ErrNotFound; backing-store failures are cached too so an outage
// does not hammer the database once per read.
func (s *Store) Lookup(ctx context.Context, key string) (Setting, error) {
	if s.ttl > 0 {
		s.mu.RLock()
		entry, ok := s.entries[key]
		s.mu.RUnlock()
		if ok && time.Since(entry.loaded) < s.ttl {
			return entry.setting, entry.err
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		setting, err := s.repo.Get(ctx, key)
		if s.ttl > 0 {
			s.mu.Lock()
			s.entries[key] = cacheEntry{setting: setting, err: err, loaded: time.Now()}
			s.mu.Unlock()
		}
		return setting, err
	})
	if err != nil {
		return Setting{}, err
	}
	return v.(Setting), nil
}

// String returns the value for key, or def when the key is absent or the
// store is unreachable. Failures are logged, never surfaced.
func (s *Store) String(ctx context.Context, key, def string) string {
	setting, err := s.Lookup(ctx, key)
	if err != nil {
		s.logMiss(key, err)
		return def
	}
	return setting.Value
}

// Int returns the integer value for key, or def on absence, failure, or a
// malformed stored value.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	setting, err := s.Lookup(ctx, key)
	if err != nil {
		s.logMiss(key, err)
		return def
	}
	n, err := setting.Int()
	if err != nil {
		s.logger.Warn("setting malformed", slog.String("key", key), slog.Any("error", err))
		return def
	}
	return n
}

// Bool returns the boolean value for key, or def on absence or failure.
func (s *Store) Bool(ctx context.Context, key string, def bool) bool {
	setting, err := s.Lookup(ctx, key)
	if err != nil {
		s.logMiss(key, err)
		return def
	}
	b, err := setting.Bool()
	if err != nil {
		s.logger.Warn("setting malformed", slog.String("key", key), slog.Any("error", err))
		return def
	}
	return b
}

// JSON unmarshals the value for key into dest.
func (s *Store) JSON(ctx context.Context, key string, dest any) error {
	setting, err := s.Lookup(ctx, key)
	if err != nil {
		return err
	}
	return setting.JSON(dest)
}

// List returns every stored setting, bypassing the cache.
func (s *Store) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Set validates the value against the declared kind and upserts it. The
// cached entry is dropped so the next lookup sees the new value.
func (s *Store) Set(ctx context.Context, key, value string, kind Kind) error {
	if key == "" {
		return errors.New("settings: key required")
	}
	if !kind.Valid() {
		return fmt.Errorf("settings: unknown kind %q", kind)
	}
	if err := validateValue(kind, value); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, Setting{Key: key, Value: value, Kind: kind}); err != nil {
		return err
	}
	s.Invalidate(key)
	return nil
}

// Invalidate drops a single cached entry.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Flush drops the whole cache.
func (s *Store) Flush() {
	s.mu.Lock()
	s.entries = make(map[string]cacheEntry)
	s.mu.Unlock()
}

func (s *Store) logMiss(key string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	s.logger.Warn("setting lookup failed", slog.String("key", key), slog.Any("error", err))
}
