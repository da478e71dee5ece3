package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/cache"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/pkg/database"
)

type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		likes:    repository.NewLikeRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
	}
}

func (f *fixture) user(t *testing.T, n int) *model.User {
	t.Helper()
	u := &model.User{Name: fmt.Sprintf("n%d", n), Surname: fmt.Sprintf("s%d", n), Email: fmt.Sprintf("u%d@example.com", n), Password: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// posts 依次创建 n 篇，创建时间递增一分钟
func (f *fixture) seedPosts(t *testing.T, author uint, countries []string) []uint {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]uint, len(countries))
	for i, c := range countries {
		p := &model.Post{UserID: author, Title: fmt.Sprintf("p%d", i), Content: "c", DateOfVisit: "2024-01-01", CountryName: c,
			CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, f.posts.Create(context.Background(), p))
		ids[i] = p.ID
	}
	return ids
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func postIDs(vs []model.PostView) []uint {
	out := make([]uint, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Ada", Surname: "L", Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Surname: "B", Email: "ada@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, apperr.ErrEmailTaken)

	_, err = svc.Register(ctx, RegisterInput{Name: " ", Surname: "B", Email: "x@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := svc.Authenticate(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	id := IdentityOf(got)
	assert.Equal(t, u.ID, id.ID)
}

func TestSocialGraph_FollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	g := NewSocialGraph(f.follows, f.users, nil)
	ctx := context.Background()
	a, b := f.user(t, 1), f.user(t, 2)

	res, err := g.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCreated, res)

	res, err = g.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyFollowing, res)

	followers, err := g.Followers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	following, err := g.Following(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, following, 1)

	ok, err := g.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSocialGraph_Rejections(t *testing.T) {
	f := newFixture(t)
	g := NewSocialGraph(f.follows, f.users, nil)
	ctx := context.Background()
	a := f.user(t, 1)

	_, err := g.Follow(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrSelfFollow)

	_, err = g.Follow(ctx, a.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = g.Followers(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var cnt int64
	f.db.Model(&model.Follow{}).Count(&cnt)
	assert.Zero(t, cnt)
}

func TestSocialGraph_FollowingSetWithCache(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	fc := cache.NewFollowingCache(rdb, time.Minute)
	g := NewSocialGraph(f.follows, f.users, fc)
	ctx := context.Background()
	a, b, c := f.user(t, 1), f.user(t, 2), f.user(t, 3)

	_, err := g.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)

	set, err := g.FollowingSet(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{b.ID: true}, set)
	assert.True(t, mr.Exists(fmt.Sprintf("following:%d", a.ID)))

	// 新关注直接写进已缓存的集合
	_, err = g.Follow(ctx, a.ID, c.ID)
	require.NoError(t, err)
	set, err = g.FollowingSet(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{b.ID: true, c.ID: true}, set)

	hits, misses := fc.Counters()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestSocialGraph_StaleStoreAfterFollowKeepsNewFollow(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	fc := cache.NewFollowingCache(rdb, time.Minute)
	g := NewSocialGraph(f.follows, f.users, fc)
	ctx := context.Background()
	a, b, c := f.user(t, 1), f.user(t, 2), f.user(t, 3)

	_, err := g.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)

	// 读者在关注提交前读库，在关注之后才写缓存
	stale, err := f.follows.FollowedIDs(ctx, a.ID)
	require.NoError(t, err)
	_, err = g.Follow(ctx, a.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, fc.Store(ctx, a.ID, stale))

	set, err := g.FollowingSet(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{b.ID: true, c.ID: true}, set)
	hits, _ := fc.Counters()
	assert.Equal(t, int64(1), hits)
}

func TestPostService_LikeThenDislikeKeepsOneRecord(t *testing.T) {
	f := newFixture(t)
	svc := NewPostService(f.posts, f.likes)
	ctx := context.Background()
	author, voter := f.user(t, 1), f.user(t, 2)

	p, err := svc.Create(ctx, author.ID, PostInput{Title: "Kyoto", Content: "temples", DateOfVisit: "2024-04-01", CountryName: "Japan"})
	require.NoError(t, err)

	require.NoError(t, svc.Like(ctx, voter.ID, p.ID))
	require.NoError(t, svc.Dislike(ctx, voter.ID, p.ID))

	var n int64
	require.NoError(t, f.db.Model(&model.Like{}).Where("post_id = ?", p.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	vote, err := svc.ViewerVote(ctx, voter.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, VoteDislike, vote)
	vote, err = svc.ViewerVote(ctx, author.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, NoVote, vote)

	v, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Likes)
	assert.Equal(t, int64(1), v.Dislikes)

	assert.ErrorIs(t, svc.Like(ctx, voter.ID, 999), apperr.ErrNotFound)
}

func TestPostService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewPostService(f.posts, f.likes)
	ctx := context.Background()
	author := f.user(t, 1)

	_, err := svc.Create(ctx, author.ID, PostInput{Title: "", Content: "x", DateOfVisit: "d", CountryName: "c"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Create(ctx, author.ID, PostInput{Title: strings.Repeat("é", 257), Content: "x", DateOfVisit: "d", CountryName: "c"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	p, err := svc.Create(ctx, author.ID, PostInput{Title: strings.Repeat("é", 256), Content: "x", DateOfVisit: "d", CountryName: "c"})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, p.ID, PostInput{Title: "t2", Content: "x2", DateOfVisit: "d2", CountryName: "Peru"}))
	v, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Peru", v.CountryName)
	assert.Equal(t, author.ID, v.UserID)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCommentService(t *testing.T) {
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.posts)
	ctx := context.Background()
	u := f.user(t, 1)
	ids := f.seedPosts(t, u.ID, []string{"Chile"})

	_, err := svc.Create(ctx, u.ID, ids[0], "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Create(ctx, u.ID, ids[0], strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Create(ctx, u.ID, 999, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, u.ID, ids[0], fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}
	page, err := svc.ListByPost(ctx, ids[0], 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestFeed_NewestIsReverseCreationOrder(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 1)
	ids := f.seedPosts(t, u.ID, repeat("Norway", 4))
	e := NewFeedEngine(f.posts, nil)

	page, err := e.ComposeFeed(context.Background(), FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[3], ids[2], ids[1], ids[0]}, postIDs(page.Posts))
	assert.Equal(t, "newest", page.Sort)

	page, err = e.ComposeFeed(context.Background(), FeedQuery{Sort: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, ids[3], page.Posts[0].ID)
}

func TestFeed_MostCommentedOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 1)
	ids := f.seedPosts(t, u.ID, repeat("Peru", 3))
	counts := []int{5, 1, 3}
	for i, n := range counts {
		for j := 0; j < n; j++ {
			require.NoError(t, f.comments.Create(ctx, &model.Comment{PostID: ids[i], UserID: u.ID, Content: "c"}))
		}
	}

	page, err := NewFeedEngine(f.posts, nil).ComposeFeed(ctx, FeedQuery{Sort: "most_commented"})
	require.NoError(t, err)
	got := make([]int64, len(page.Posts))
	for i, p := range page.Posts {
		got[i] = p.CommentCount
	}
	assert.Equal(t, []int64{5, 3, 1}, got)
	assert.Equal(t, []uint{ids[0], ids[2], ids[1]}, postIDs(page.Posts))
}

func TestFeed_MostLikedOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, 1)
	voters := []*model.User{f.user(t, 2), f.user(t, 3)}
	ids := f.seedPosts(t, author.ID, repeat("Ghana", 3))
	require.NoError(t, f.likes.Upsert(ctx, voters[0].ID, ids[1], true))
	require.NoError(t, f.likes.Upsert(ctx, voters[1].ID, ids[1], true))
	require.NoError(t, f.likes.Upsert(ctx, voters[0].ID, ids[2], true))
	require.NoError(t, f.likes.Upsert(ctx, voters[1].ID, ids[0], false))

	page, err := NewFeedEngine(f.posts, nil).ComposeFeed(ctx, FeedQuery{Sort: "most_liked"})
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[1], ids[2], ids[0]}, postIDs(page.Posts))
	assert.Equal(t, int64(1), page.Posts[2].Dislikes)
}

func TestFeed_Pagination(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 1)
	f.seedPosts(t, u.ID, repeat("Iceland", 23))
	e := NewFeedEngine(f.posts, nil)

	page, err := e.ComposeFeed(context.Background(), FeedQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)
	assert.Equal(t, Pagination{Total: 23, Page: 3, Limit: 10, TotalPages: 3}, page.Pagination)

	page, err = e.ComposeFeed(context.Background(), FeedQuery{Page: -2, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, DefaultPageSize, page.Pagination.Limit)

	page, err = e.ComposeFeed(context.Background(), FeedQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Pagination.Limit)
	assert.Len(t, page.Posts, 23)
}

func TestFeed_CountryFilterIsPostFetch(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 1)
	countries := []string{"France", "Spain", "New Zealand", "Spain", "Italy", "spain", "Chile", "Peru", "Basque Spain", "Kenya"}
	f.seedPosts(t, u.ID, countries)
	// 更早的一篇落在第二页，不计入第一页的结果
	older := &model.Post{UserID: u.ID, Title: "old", Content: "c", DateOfVisit: "2020-01-01", CountryName: "Spain",
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, f.posts.Create(context.Background(), older))

	page, err := NewFeedEngine(f.posts, nil).ComposeFeed(context.Background(), FeedQuery{Page: 2, Limit: 10, Country: "SPAIN"})
	require.NoError(t, err)
	assert.Equal(t, []uint{older.ID}, postIDs(page.Posts))
	assert.Equal(t, int64(1), page.Pagination.Total)

	page, err = NewFeedEngine(f.posts, nil).ComposeFeed(context.Background(), FeedQuery{Page: 1, Limit: 10, Country: "spain"})
	require.NoError(t, err)
	// 最新的 10 篇里有 4 篇匹配
	assert.Len(t, page.Posts, 4)
	assert.Equal(t, int64(4), page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestFeed_AnnotatesFollowedAuthors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer, followed, other := f.user(t, 1), f.user(t, 2), f.user(t, 3)
	f.seedPosts(t, followed.ID, []string{"Laos"})
	f.seedPosts(t, other.ID, []string{"Laos"})
	g := NewSocialGraph(f.follows, f.users, nil)
	_, err := g.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)
	e := NewFeedEngine(f.posts, g)

	page, err := e.ComposeFeed(ctx, FeedQuery{Viewer: &auth.Identity{ID: viewer.ID, Provenance: auth.ProvenanceToken}})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{followed.ID: true}, page.FollowingAuthors)
	assert.Equal(t, "n2", page.Posts[len(page.Posts)-1].AuthorName)

	page, err = e.ComposeFeed(ctx, FeedQuery{})
	require.NoError(t, err)
	assert.Nil(t, page.FollowingAuthors)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 3, TotalPages(23, 10))
}
