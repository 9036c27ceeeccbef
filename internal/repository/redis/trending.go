package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"smartCart/business/interaction"
	"smartCart/business/recommend"
	"smartCart/business/strategy"
	"smartCart/domain"

	"github.com/redis/go-redis/v9"
)

const (
	trendingPrefix        = "trending:products"
	defaultTrendingWindow = 7 * 24 * time.Hour
	trendingUnionTTL      = time.Minute
	bucketLayout          = "2006-01-02"
)

// Trending is a rolling leaderboard of product popularity. Scores land in one
// sorted set per UTC day; reads union the buckets inside the window and older
// buckets expire on their own.
type Trending struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

var (
	_ strategy.TrendingReader  = (*Trending)(nil)
	_ recommend.TrendingReader = (*Trending)(nil)
	_ interaction.Leaderboard  = (*Trending)(nil)
)

func NewTrending(client *redis.Client, window time.Duration) *Trending {
	if window <= 0 {
		window = defaultTrendingWindow
	}
	return &Trending{client: client, window: window, now: time.Now}
}

func bucketKey(at time.Time) string {
	return trendingPrefix + ":" + at.UTC().Format(bucketLayout)
}

// windowKeys lists the day buckets covering the window ending at now, newest first.
func (t *Trending) windowKeys(now time.Time) []string {
	days := int((t.window + 24*time.Hour - 1) / (24 * time.Hour))
	day := now.UTC().Truncate(24 * time.Hour)
	keys := make([]string, 0, days)
	for i := 0; i < days; i++ {
		keys = append(keys, bucketKey(day.AddDate(0, 0, -i)))
	}
	return keys
}

func (t *Trending) inWindow(at, now time.Time) bool {
	oldest := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(len(t.windowKeys(now)) - 1))
	return !at.UTC().Before(oldest)
}

// Bump credits productID in the bucket of the event time. Events that already
// fell out of the window are ignored.
func (t *Trending) Bump(ctx context.Context, productID uint64, weight float64, at time.Time) error {
	now := t.now()
	if at.IsZero() {
		at = now
	}
	if !t.inWindow(at, now) {
		return nil
	}

	key := bucketKey(at)
	pipe := t.client.TxPipeline()
	pipe.ZIncrBy(ctx, key, weight, strconv.FormatUint(productID, 10))
	pipe.Expire(ctx, key, t.window+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bump trending score: %w", err)
	}

	return nil
}

// TopTrending returns the highest scored products over the window, best first.
func (t *Trending) TopTrending(ctx context.Context, limit int) ([]domain.ProductCount, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := t.now()
	dest := trendingPrefix + ":window:" + now.UTC().Format(bucketLayout)

	pipe := t.client.TxPipeline()
	pipe.ZUnionStore(ctx, dest, &redis.ZStore{Keys: t.windowKeys(now), Aggregate: "SUM"})
	pipe.Expire(ctx, dest, trendingUnionTTL)
	top := pipe.ZRevRangeWithScores(ctx, dest, 0, int64(limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read trending products: %w", err)
	}

	entries := top.Val()
	out := make([]domain.ProductCount, 0, len(entries))
	for _, z := range entries {
		id, err := memberID(z)
		if err != nil {
			continue
		}
		out = append(out, domain.ProductCount{ProductID: id, Count: int64(z.Score)})
	}

	return out, nil
}

func memberID(z redis.Z) (uint64, error) {
	s, ok := z.Member.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected member type %T", z.Member)
	}
	return strconv.ParseUint(s, 10, 64)
}
