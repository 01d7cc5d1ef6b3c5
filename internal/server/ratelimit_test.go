package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(perMinute, perHour, perDay int, dataPerDay int64) (*RateLimiter, *clock) {
	c := &clock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, perHour, perDay, dataPerDay)
	rl.now = c.now
	return rl, c
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)
	for range 100 {
		require.NoError(t, rl.CheckRateLimit("client", 100))
	}
	usage := rl.GetUsage("client")
	assert.Equal(t, 100, usage.RequestsToday)
	assert.Equal(t, int64(10000), usage.DataToday)
	assert.Equal(t, Usage{}, rl.GetUsage("unknown"))
}

func TestRateLimiter_Limits(t *testing.T) {
	tests := []struct {
		name      string
		perMinute int
		perHour   int
		perDay    int
		data      int64
		allowed   int
		errType   string
	}{
		{"per minute", 2, 0, 0, 0, 2, "minute"},
		{"per hour", 0, 3, 0, 0, 3, "hour"},
		{"per day", 0, 0, 4, 0, 4, "requests"},
		{"data per day", 0, 0, 0, 250, 2, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newClockedLimiter(tt.perMinute, tt.perHour, tt.perDay, tt.data)
			for range tt.allowed {
				require.NoError(t, rl.CheckRateLimit("client", 100))
			}
			err := rl.CheckRateLimit("client", 100)
			require.Error(t, err)

			var rle *RateLimitError
			var qe *QuotaExceededError
			switch {
			case errors.As(err, &rle):
				assert.Equal(t, tt.errType, rle.Type)
				assert.Positive(t, rle.RetryAfter)
			case errors.As(err, &qe):
				assert.Equal(t, tt.errType, qe.Type)
				assert.True(t, qe.Resets.After(time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)))
			default:
				t.Fatalf("unexpected error type %T", err)
			}
			assert.Equal(t, tt.allowed, rl.GetUsage("client").RequestsToday, "rejected requests are not counted")
		})
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newClockedLimiter(1, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("b", 0))
	assert.Error(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_WindowsReset(t *testing.T) {
	rl, c := newClockedLimiter(1, 0, 2, 0)
	require.NoError(t, rl.CheckRateLimit("client", 0))
	require.Error(t, rl.CheckRateLimit("client", 0))

	c.advance(time.Minute)
	require.NoError(t, rl.CheckRateLimit("client", 0))

	c.advance(time.Minute)
	err := rl.CheckRateLimit("client", 0)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)

	c.advance(24 * time.Hour)
	assert.NoError(t, rl.CheckRateLimit("client", 0))
	assert.Equal(t, 1, rl.GetUsage("client").RequestsToday)
}

func TestRateLimitErrorMessages(t *testing.T) {
	rle := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 30 * time.Second}
	assert.Contains(t, rle.Error(), "rate limit exceeded for minute")

	qe := &QuotaExceededError{Type: "data", Limit: 10, Used: 9, Resets: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Contains(t, qe.Error(), "quota exceeded for data (used: 9, limit: 10")
}
