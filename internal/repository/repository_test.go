package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/pkg/database"
)

func newTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 每个连接都是独立的内存库
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t testing.TB, db *gorm.DB, n int) *model.User {
	t.Helper()
	u := &model.User{
		Name:     fmt.Sprintf("name%d", n),
		Surname:  fmt.Sprintf("surname%d", n),
		Email:    fmt.Sprintf("u%d@example.com", n),
		Password: "hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t testing.TB, db *gorm.DB, author uint, country string, at time.Time) *model.Post {
	t.Helper()
	p := &model.Post{
		UserID:      author,
		Title:       "t",
		Content:     "c",
		DateOfVisit: "2024-05-01",
		CountryName: country,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com", Password: "x"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &model.User{Name: "A", Surname: "B", Email: "ada@example.com", Password: "y"}
	assert.ErrorIs(t, repo.Create(ctx, dup), apperr.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ok, err := repo.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFollowRepository_IdempotentCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	a, b, c := seedUser(t, db, 1), seedUser(t, db, 2), seedUser(t, db, 3)

	created, err := repo.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.Create(ctx, c.ID, b.ID)
	require.NoError(t, err)

	var cnt int64
	db.Model(&model.Follow{}).Where("follower_id = ? AND followed_id = ?", a.ID, b.ID).Count(&cnt)
	assert.Equal(t, int64(1), cnt)

	followers, err := repo.ListFollowers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, c.ID, followers[0].ID)
	assert.Equal(t, "name3", followers[0].Name)

	following, err := repo.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.Email, following[0].Email)

	ids, err := repo.FollowedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids)

	ok, err := repo.Exists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLikeRepository_UpsertKeepsOneRecord(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, 1)
	p := seedPost(t, db, u.ID, "Japan", time.Now())

	require.NoError(t, repo.Upsert(ctx, u.ID, p.ID, true))
	require.NoError(t, repo.Upsert(ctx, u.ID, p.ID, false))

	var n int64
	require.NoError(t, db.Model(&model.Like{}).Where("post_id = ?", p.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	l, err := repo.Get(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, l.IsLike)
}

func TestPostRepository_CountsAndOrdering(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostRepository(db)
	likes := NewLikeRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, 1)
	voters := []*model.User{seedUser(t, db, 2), seedUser(t, db, 3), seedUser(t, db, 4)}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := seedPost(t, db, author.ID, "France", base)
	b := seedPost(t, db, author.ID, "Spain", base.Add(time.Minute))
	c := seedPost(t, db, author.ID, "Italy", base.Add(2*time.Minute))

	// b: 2 likes 1 dislike; c: 1 like
	require.NoError(t, likes.Upsert(ctx, voters[0].ID, b.ID, true))
	require.NoError(t, likes.Upsert(ctx, voters[1].ID, b.ID, true))
	require.NoError(t, likes.Upsert(ctx, voters[2].ID, b.ID, false))
	require.NoError(t, likes.Upsert(ctx, voters[0].ID, c.ID, true))
	// a: 2 comments
	for i := 0; i < 2; i++ {
		require.NoError(t, comments.Create(ctx, &model.Comment{PostID: a.ID, UserID: voters[0].ID, Content: "nice"}))
	}

	v, err := posts.GetView(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Likes)
	assert.Equal(t, int64(1), v.Dislikes)
	assert.Equal(t, "name1", v.AuthorName)

	ids := func(vs []model.PostView) []uint {
		out := make([]uint, len(vs))
		for i, x := range vs {
			out[i] = x.ID
		}
		return out
	}

	newest, err := posts.ListRanked(ctx, OrderNewest, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID, b.ID, a.ID}, ids(newest))

	liked, err := posts.ListRanked(ctx, OrderMostLiked, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID, a.ID}, ids(liked))

	commented, err := posts.ListRanked(ctx, OrderMostCommented, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, ids(commented))

	total, err := posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPostRepository_UpdateDeleteOwner(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, 1)
	other := seedUser(t, db, 2)
	p := seedPost(t, db, author.ID, "Peru", time.Now())
	require.NoError(t, NewLikeRepository(db).Upsert(ctx, other.ID, p.ID, true))
	require.NoError(t, NewCommentRepository(db).Create(ctx, &model.Comment{PostID: p.ID, UserID: other.ID, Content: "x"}))

	require.NoError(t, posts.Update(ctx, p.ID, PostFields{Title: "new", Content: "body", DateOfVisit: "2023-02-02", CountryName: "Chile"}))
	v, err := posts.GetView(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", v.Title)
	assert.Equal(t, "Chile", v.CountryName)
	assert.Equal(t, author.ID, v.UserID)

	owner, err := posts.OwnerID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, owner)

	require.NoError(t, posts.Delete(ctx, p.ID))
	_, err = posts.OwnerID(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, posts.Delete(ctx, p.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, posts.Update(ctx, p.ID, PostFields{Title: "x"}), apperr.ErrNotFound)

	var left int64
	db.Model(&model.Like{}).Count(&left)
	assert.Zero(t, left)
	db.Model(&model.Comment{}).Count(&left)
	assert.Zero(t, left)
}

func TestCommentRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, 1)
	p := seedPost(t, db, u.ID, "Kenya", time.Now())
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		c := &model.Comment{PostID: p.ID, UserID: u.ID, Content: fmt.Sprintf("c%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, c))
	}

	list, err := repo.ListByPost(ctx, p.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].Content)
	assert.Equal(t, "name1", list[0].UserName)

	n, err := repo.CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	owner, err := repo.OwnerID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)
	_, err = repo.OwnerID(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	k := &model.APIKey{Key: "3f2c7a1e-0000-4000-8000-000000000001", Owner: "blog", Active: true}
	require.NoError(t, repo.Create(ctx, k))

	ok, err := repo.IsActive(ctx, k.Key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Deactivate(ctx, k.ID))
	ok, err = repo.IsActive(ctx, k.Key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, repo.Deactivate(ctx, 77), apperr.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)
}
