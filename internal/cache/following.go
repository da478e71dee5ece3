package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// completeMarker is written by Store only. A set without it holds ids added
// by Add before any full load and is treated as a miss. User ids start at 1.
const completeMarker = "0"

// FollowingCache stores the ids a viewer follows as a Redis set so feed
// annotation does not hit the follows table on every page view. Follows are
// never removed, so writers only ever add members; a late Store of an older
// read cannot drop an id that Add already recorded.
type FollowingCache struct {
	rdb *redis.Client
	ttl time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewFollowingCache(rdb *redis.Client, ttl time.Duration) *FollowingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FollowingCache{rdb: rdb, ttl: ttl}
}

func key(viewerID uint) string { return fmt.Sprintf("following:%d", viewerID) }

// Load returns the cached ids; ok is false on a miss.
func (c *FollowingCache) Load(ctx context.Context, viewerID uint) ([]uint, bool, error) {
	members, err := c.rdb.SMembers(ctx, key(viewerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, err
	}
	complete := false
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		if m == completeMarker {
			complete = true
			continue
		}
		n, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(n))
	}
	if !complete {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return ids, true, nil
}

// Store merges a full read of the viewer's follows into the set and marks it
// complete.
func (c *FollowingCache) Store(ctx context.Context, viewerID uint, ids []uint) error {
	members := make([]interface{}, 0, len(ids)+1)
	members = append(members, completeMarker)
	for _, id := range ids {
		members = append(members, strconv.FormatUint(uint64(id), 10))
	}
	return c.add(ctx, viewerID, members)
}

// Add records one new follow, whether or not the set has been loaded yet.
func (c *FollowingCache) Add(ctx context.Context, viewerID, followedID uint) error {
	return c.add(ctx, viewerID, []interface{}{strconv.FormatUint(uint64(followedID), 10)})
}

func (c *FollowingCache) add(ctx context.Context, viewerID uint, members []interface{}) error {
	k := key(viewerID)
	pipe := c.rdb.TxPipeline()
	pipe.SAdd(ctx, k, members...)
	pipe.Expire(ctx, k, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Counters reports hits and misses since start.
func (c *FollowingCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
