package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstMatchStopsAtFirstHit(t *testing.T) {
	var probed []string
	sel, ok := firstMatch(context.Background(), []string{"a", "b", "c", "d"}, func(_ context.Context, s string) bool {
		probed = append(probed, s)
		return s == "b" || s == "d"
	})
	require.True(t, ok)
	assert.Equal(t, "b", sel)
	assert.Equal(t, []string{"a", "b"}, probed)
}

func TestFirstMatchNoHit(t *testing.T) {
	sel, ok := firstMatch(context.Background(), []string{"a", "b"}, func(context.Context, string) bool { return false })
	assert.False(t, ok)
	assert.Empty(t, sel)

	_, ok = firstMatch(context.Background(), nil, func(context.Context, string) bool { return true })
	assert.False(t, ok)
}

func TestRaceAnyReturnsFastHitAndCancelsRest(t *testing.T) {
	var mu sync.Mutex
	cancelled := 0

	start := time.Now()
	sel, ok := raceAny(context.Background(), []string{"slow1", "fast", "slow2"}, func(ctx context.Context, s string) bool {
		if s == "fast" {
			return true
		}
		select {
		case <-ctx.Done():
			mu.Lock()
			cancelled++
			mu.Unlock()
			return false
		case <-time.After(5 * time.Second):
			return true
		}
	})
	require.True(t, ok)
	assert.Equal(t, "fast", sel)
	assert.Less(t, time.Since(start), time.Second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return cancelled == 2
	}, time.Second, 10*time.Millisecond)
}

func TestRaceAnyAllMiss(t *testing.T) {
	_, ok := raceAny(context.Background(), []string{"a", "b", "c"}, func(context.Context, string) bool { return false })
	assert.False(t, ok)

	_, ok = raceAny(context.Background(), nil, func(context.Context, string) bool { return true })
	assert.False(t, ok)
}
