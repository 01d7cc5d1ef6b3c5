package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "bubbletrans:translation:"

// RedisStore keeps entries as JSON values. Expiry is delegated to Redis.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to url (redis://...) and pings the server.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

func (r *RedisStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, redisPrefix+key.ID()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry: %w", err)
	}
	if e.Expired(r.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (r *RedisStore) Set(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = entry.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return nil
		}
	}
	return r.client.Set(ctx, redisPrefix+entry.Key.ID(), raw, ttl).Err()
}

// Sweep is a no-op: Redis evicts expired keys itself.
func (r *RedisStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
