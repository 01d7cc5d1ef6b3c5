package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
)

// Key identifies a cache entry. Text is trimmed and languages normalized by NewKey.
type Key struct {
	Text string `json:"text"`
	Src  string `json:"src"`
	Dst  string `json:"dst"`
}

// NewKey normalizes its inputs into a Key.
func NewKey(text, src, dst string) Key {
	return Key{Text: strings.TrimSpace(text), Src: lang.Normalize(src), Dst: lang.Normalize(dst)}
}

// ID is a stable digest of the key used as storage identifier.
func (k Key) ID() string {
	sum := sha256.Sum256([]byte(k.Src + "\x00" + k.Dst + "\x00" + k.Text))
	return hex.EncodeToString(sum[:])
}

func (k Key) String() string {
	return fmt.Sprintf("%s->%s:%q", k.Src, k.Dst, k.Text)
}

// Entry is a stored translation. A zero ExpiresAt never expires.
type Entry struct {
	Key         Key       `json:"key"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether e is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store persists cache entries. Get returns false for missing or expired entries.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
	// Sweep removes entries expired at now and returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryStore keeps entries in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key.ID()]
	m.mu.RUnlock()
	if !ok || e.Expired(m.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *MemoryStore) Set(_ context.Context, entry Entry) error {
	m.mu.Lock()
	m.entries[entry.Key.ID()] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryStore) Close() error { return nil }
