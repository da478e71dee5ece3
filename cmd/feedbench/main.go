// feedbench 测量首页 feed 在不同排序、过滤与并发下的延迟
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/d60-Lab/travel-tales/config"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

var countries = []string{"Japan", "France", "Italy", "Peru", "Kenya", "Canada", "Norway", "Vietnam"}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	USERS := envInt("USERS", 200)
	POSTS := envInt("POSTS", 5000)
	ROUNDS := envInt("ROUNDS", 200)
	CONC := envInt("CONC", 4)
	LIMIT := envInt("LIMIT", 10)
	rng := rand.New(rand.NewSource(1))

	// seed users
	users := make([]model.User, USERS)
	for i := range users {
		users[i] = model.User{
			Name:     fmt.Sprintf("bench%d", i),
			Surname:  "user",
			Email:    fmt.Sprintf("bench-%d-%d@example.com", time.Now().UnixNano(), i),
			Password: "p",
		}
	}
	must(0, db.CreateInBatches(&users, 500).Error)

	// seed posts, likes, comments, follows
	base := time.Now().Add(-time.Duration(POSTS) * time.Minute)
	posts := make([]model.Post, POSTS)
	for i := range posts {
		at := base.Add(time.Duration(i) * time.Minute)
		posts[i] = model.Post{
			UserID:      users[rng.Intn(USERS)].ID,
			Title:       fmt.Sprintf("post %d", i),
			Content:     "bench",
			DateOfVisit: "2024-01-01",
			CountryName: countries[rng.Intn(len(countries))],
			CreatedAt:   at,
			UpdatedAt:   at,
		}
	}
	must(0, db.CreateInBatches(&posts, 1000).Error)

	var likes []model.Like
	var comments []model.Comment
	seen := map[[2]uint]bool{}
	for i := 0; i < POSTS*3; i++ {
		u, p := users[rng.Intn(USERS)].ID, posts[rng.Intn(POSTS)].ID
		if !seen[[2]uint{u, p}] {
			seen[[2]uint{u, p}] = true
			likes = append(likes, model.Like{UserID: u, PostID: p, IsLike: rng.Intn(4) > 0})
		}
		if i%2 == 0 {
			comments = append(comments, model.Comment{PostID: p, UserID: u, Content: "nice"})
		}
	}
	must(0, db.CreateInBatches(&likes, 1000).Error)
	must(0, db.CreateInBatches(&comments, 1000).Error)

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	viewer := users[0]
	for i := 1; i < USERS; i += 3 {
		must(followRepo.Create(ctx, viewer.ID, users[i].ID))
	}

	graph := service.NewSocialGraph(followRepo, userRepo, nil)
	feed := service.NewFeedEngine(repository.NewPostRepository(db), graph)
	id := &auth.Identity{ID: viewer.ID, Provenance: auth.ProvenanceSession}
	maxPage := POSTS / LIMIT

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	type scenario struct {
		name    string
		sort    string
		country string
		viewer  *auth.Identity
	}
	scenarios := []scenario{
		{"newest/anon", "newest", "", nil},
		{"newest/viewer", "newest", "", id},
		{"most_liked", "most_liked", "", nil},
		{"most_commented", "most_commented", "", nil},
		{"newest/country", "newest", "jap", id},
	}

	fmt.Printf("USERS=%d, POSTS=%d, ROUNDS=%d, CONC=%d, LIMIT=%d\n", USERS, POSTS, ROUNDS, CONC, LIMIT)
	for _, s := range scenarios {
		feedCh := make(chan int, ROUNDS)
		for i := 0; i < ROUNDS; i++ {
			feedCh <- 1 + rng.Intn(maxPage)
		}
		close(feedCh)

		recs := make(chan time.Duration, ROUNDS)
		errs := make(chan error, CONC)
		t0 := time.Now()
		for w := 0; w < CONC; w++ {
			go func() {
				for page := range feedCh {
					st := time.Now()
					if _, err := feed.ComposeFeed(ctx, service.FeedQuery{
						Page: page, Limit: LIMIT, Sort: s.sort, Country: s.country, Viewer: s.viewer,
					}); err != nil {
						errs <- err
						return
					}
					recs <- time.Since(st)
				}
				errs <- nil
			}()
		}
		for w := 0; w < CONC; w++ {
			if err := <-errs; err != nil {
				fmt.Printf("%s: %v\n", s.name, err)
			}
		}
		close(recs)
		total := time.Since(t0)

		var ds []time.Duration
		for d := range recs {
			ds = append(ds, d)
		}
		fmt.Printf("%-16s total: %v, qps: %.0f, p50: %v, p95: %v, p99: %v\n",
			s.name, total, float64(len(ds))/total.Seconds(), pct(ds, 0.50), pct(ds, 0.95), pct(ds, 0.99))
	}
}
