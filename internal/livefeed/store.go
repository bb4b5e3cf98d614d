package livefeed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const frameKey = "livefeed:frames"

// Store caches recent annotated frames in redis so the snapshot
// endpoint can serve a still image without holding a feed
// subscription. Writes faster than the configured gap are dropped;
// the cache is a sampling of the feed, not a recording.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
	gap   time.Duration

	mu     sync.Mutex
	lastAt time.Time
}

func NewStore(redisClient *redis.Client, ttl, gap time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if gap <= 0 {
		gap = time.Second
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
		gap:   gap,
	}
}

// Put caches a frame keyed by capture time. Entries older than the
// TTL window are trimmed in the same round trip so a long-running
// feed cannot grow the set without bound.
func (s *Store) Put(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastAt) < s.gap {
		s.mu.Unlock()
		return nil
	}
	s.lastAt = now
	s.mu.Unlock()

	member := redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: frame,
	}
	horizon := strconv.FormatInt(now.Add(-s.ttl).UnixMilli(), 10)

	pipe := s.redis.Pipeline()
	pipe.ZAdd(ctx, frameKey, member)
	pipe.ZRemRangeByScore(ctx, frameKey, "0", horizon)
	pipe.Expire(ctx, frameKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache frame: %w", err)
	}
	return nil
}

// Latest returns the newest cached frame and its capture time in unix
// milliseconds. A cold cache returns a nil frame and no error.
func (s *Store) Latest(ctx context.Context) ([]byte, int64, error) {
	results, err := s.redis.ZRevRangeWithScores(ctx, frameKey, 0, 0).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get latest frame: %w", err)
	}
	if len(results) == 0 {
		return nil, 0, nil
	}

	data, ok := results[0].Member.(string)
	if !ok {
		return nil, 0, fmt.Errorf("invalid frame data type")
	}
	return []byte(data), int64(results[0].Score), nil
}

// Clear drops all cached frames.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, frameKey).Err(); err != nil {
		return fmt.Errorf("failed to clear frame cache: %w", err)
	}
	return nil
}
