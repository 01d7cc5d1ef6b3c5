package translation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
)

// DefaultTimeout bounds a single provider call when the cache has no timeout set.
const DefaultTimeout = 15 * time.Second

// CacheConfig configures a Cache.
type CacheConfig struct {
	// TTL is how long entries live. Zero keeps them forever.
	TTL time.Duration
	// Timeout bounds each provider call.
	Timeout time.Duration
}

// Stats counts cache outcomes since creation.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
	Shared   int64 `json:"shared"`
}

// Cache memoizes translations keyed by trimmed text and language pair.
// Concurrent misses for one key share a single provider call, and failures
// are never stored.
type Cache struct {
	store   Store
	config  CacheConfig
	flights singleflight.Group
	now     func() time.Time

	hits, misses, failures, shared atomic.Int64
}

// NewCache wraps store. A nil store gets an in-memory one.
func NewCache(store Store, config CacheConfig) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Cache{store: store, config: config, now: time.Now}
}

// Store returns the backing store.
func (c *Cache) Store() Store { return c.store }

// GetOrTranslate returns the cached translation of text or asks tr for it.
// Empty text maps to empty output and identical languages return the text
// unchanged; neither reaches the provider or the store.
func (c *Cache) GetOrTranslate(ctx context.Context, text, src, dst string, tr Translator) (string, error) {
	key := NewKey(text, src, dst)
	if key.Text == "" {
		return "", nil
	}
	if key.Src == key.Dst {
		return key.Text, nil
	}
	if !lang.IsSupported(key.Src) || !lang.IsSupported(key.Dst) {
		c.failures.Add(1)
		return "", failed(key.Text, key.Src, key.Dst, ErrUnsupportedLanguage)
	}

	if e, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return e.Translation, nil
	}

	v, err, shared := c.flights.Do(key.ID(), func() (any, error) {
		// A previous flight may have stored the value between lookup and Do.
		if e, ok := c.lookup(ctx, key); ok {
			c.hits.Add(1)
			return e.Translation, nil
		}
		c.misses.Add(1)
		return c.fetch(ctx, key, tr)
	})
	if shared {
		c.shared.Add(1)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) lookup(ctx context.Context, key Key) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Translation cache read failed", "key", key.ID(), "error", err)
		return Entry{}, false
	}
	return e, ok
}

// fetch runs detached from the caller's cancellation so that other waiters
// on the same flight are not failed by one caller leaving. A provider that
// ignores its context is abandoned once the timeout passes.
func (c *Cache) fetch(ctx context.Context, key Key, tr Translator) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
	defer cancel()

	type reply struct {
		out string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("translator panic: %v", r)}
			}
		}()
		out, err := tr.Translate(callCtx, key.Text, key.Src, key.Dst)
		done <- reply{out: out, err: err}
	}()

	var out string
	var err error
	select {
	case r := <-done:
		out, err = r.out, r.err
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err != nil {
		c.failures.Add(1)
		slog.Debug("Translation failed", "src", key.Src, "dst", key.Dst, "error", err)
		return "", failed(key.Text, key.Src, key.Dst, err)
	}

	now := c.now()
	entry := Entry{Key: key, Translation: out, CreatedAt: now}
	if c.config.TTL > 0 {
		entry.ExpiresAt = now.Add(c.config.TTL)
	}
	if err := c.store.Set(callCtx, entry); err != nil {
		slog.Warn("Translation cache write failed", "key", key.ID(), "error", err)
	}
	return out, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
		Shared:   c.shared.Load(),
	}
}

// Close closes the backing store.
func (c *Cache) Close() error { return c.store.Close() }
