// cachebench 对比 FollowingSet 直查数据库与走 Redis 缓存的延迟
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/travel-tales/config"
	"github.com/d60-Lab/travel-tales/internal/cache"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/database"
)

const (
	userCount   = 2000
	viewerCount = 50
	followsEach = 300
	requests    = 5000
)

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	fmt.Println("Setting up test data...")
	stamp := time.Now().UnixNano()
	users := make([]model.User, userCount)
	for i := range users {
		users[i] = model.User{
			Name:     fmt.Sprintf("cache%d", i),
			Surname:  "bench",
			Email:    fmt.Sprintf("cache-%d-%d@example.com", stamp, i),
			Password: "p",
		}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	rnd := rand.New(rand.NewSource(42))
	follows := make([]model.Follow, 0, viewerCount*followsEach)
	for v := 0; v < viewerCount; v++ {
		for _, j := range rnd.Perm(userCount)[:followsEach] {
			if j == v {
				continue
			}
			follows = append(follows, model.Follow{FollowerID: users[v].ID, FollowedID: users[j].ID})
		}
	}
	mustDo(db.CreateInBatches(&follows, 1000).Error)
	fmt.Printf("Test data ready: %d viewers following %d users each\n", viewerCount, followsEach)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = cfg.Redis.Addr
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	fc := cache.NewFollowingCache(client, 10*time.Minute)

	viewers := make([]uint, requests)
	for i := range viewers {
		viewers[i] = users[rnd.Intn(viewerCount)].ID
	}

	noCache := run(ctx, client, service.NewSocialGraph(followRepo, userRepo, nil), viewers, false)
	cached := run(ctx, client, service.NewSocialGraph(followRepo, userRepo, fc), viewers, true)
	hits, misses := fc.Counters()

	fmt.Printf("\nFollowingSet latency (%d req across %d viewers)\n", requests, viewerCount)
	fmt.Printf("%-12s avg=%v p95=%v p99=%v\n", "No cache", avg(noCache.durations), pct(noCache.durations, 0.95), pct(noCache.durations, 0.99))
	fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d misses=%d cache_keys=%d mem=%s\n",
		"Redis set", avg(cached.durations), pct(cached.durations, 0.95), pct(cached.durations, 0.99),
		hits, misses, cached.cacheKeys, formatBytes(cached.memoryBytes))
}

type scenarioResult struct {
	durations   []time.Duration
	cacheKeys   int
	memoryBytes int64
}

func run(ctx context.Context, client *redis.Client, graph service.SocialGraph, viewers []uint, warm bool) scenarioResult {
	client.FlushAll(ctx)

	if warm {
		fmt.Print("  Warming cache...")
		for _, v := range viewers {
			must(graph.FollowingSet(ctx, v))
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(viewers))
	for _, v := range viewers {
		start := time.Now()
		must(graph.FollowingSet(ctx, v))
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "following:*").Result()
	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}
	return scenarioResult{durations: out, cacheKeys: len(keys), memoryBytes: memBytes}
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			var n int64
			fmt.Sscanf(v, "%d", &n)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
