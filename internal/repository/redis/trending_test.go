package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrending_WindowKeysCoverWholeDays(t *testing.T) {
	tr := NewTrending(nil, 3*24*time.Hour)
	now := time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{
		"trending:products:2026-04-10",
		"trending:products:2026-04-09",
		"trending:products:2026-04-08",
	}, tr.windowKeys(now))
}

func TestTrending_EventOlderThanWindowNoLongerRanks(t *testing.T) {
	tr := NewTrending(nil, 7*24*time.Hour)
	now := time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	old := now.AddDate(0, 0, -8)
	assert.NotContains(t, tr.windowKeys(now), bucketKey(old))
	assert.False(t, tr.inWindow(old, now))

	// dropped before any redis call, so a nil client is never touched
	require.NoError(t, tr.Bump(context.Background(), 42, 5, old))

	recent := now.AddDate(0, 0, -6)
	assert.Contains(t, tr.windowKeys(now), bucketKey(recent))
	assert.True(t, tr.inWindow(recent, now))
}

func TestTrending_DefaultWindow(t *testing.T) {
	tr := NewTrending(nil, 0)
	assert.Len(t, tr.windowKeys(time.Now()), 7)
}
