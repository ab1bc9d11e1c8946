package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	t.Run("лимит на пользователя", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow(1), "запрос %d должен пройти", i+1)
		}
		assert.False(t, rl.Allow(1), "четвёртый запрос в окне блокируется")
	})

	t.Run("пользователи считаются независимо", func(t *testing.T) {
		assert.True(t, rl.Allow(2))
	})
}

func TestPruneOlder(t *testing.T) {
	now := time.Now()
	times := []time.Time{
		now.Add(-2 * time.Minute),
		now.Add(-30 * time.Second),
		now,
	}
	recent := pruneOlder(times, now.Add(-time.Minute))
	assert.Len(t, recent, 2)
}

func TestRateLimiterCloseIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Close()
	rl.Close()
}
