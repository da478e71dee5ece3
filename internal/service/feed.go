package service

import (
	"context"
	"strings"
	"time"

	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// FeedQuery 首页查询参数；Viewer 可为空
type FeedQuery struct {
	Page    int
	Limit   int
	Sort    string
	Country string
	Viewer  *auth.Identity
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type FeedPage struct {
	Posts      []model.PostView `json:"posts"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
	Country    string           `json:"country,omitempty"`
	// FollowingAuthors marks authors on this page the viewer follows.
	FollowingAuthors map[uint]bool `json:"followingAuthors,omitempty"`
}

// FeedEngine ranks, paginates and annotates the home feed.
type FeedEngine struct {
	posts repository.PostRepository
	graph SocialGraph
}

func NewFeedEngine(posts repository.PostRepository, graph SocialGraph) *FeedEngine {
	return &FeedEngine{posts: posts, graph: graph}
}

// ComposeFeed fetches one ranked page. A country filter is applied to the
// fetched page only, so a filtered page may hold fewer than Limit posts and
// its totals describe that page alone.
func (e *FeedEngine) ComposeFeed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	start := time.Now()
	page, limit := NormalizePage(q.Page, q.Limit)
	order := ParseOrder(q.Sort)
	country := strings.TrimSpace(q.Country)
	defer func() { metrics.RecordFeed(string(order), country != "", time.Since(start)) }()

	posts, err := e.posts.ListRanked(ctx, order, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	var total int64
	if country != "" {
		posts = filterByCountry(posts, country)
		total = int64(len(posts))
	} else if total, err = e.posts.Count(ctx); err != nil {
		return nil, err
	}

	out := &FeedPage{
		Posts:      posts,
		Pagination: Pagination{Total: total, Page: page, Limit: limit, TotalPages: TotalPages(total, limit)},
		Sort:       string(order),
		Country:    country,
	}

	if q.Viewer != nil && e.graph != nil {
		set, err := e.graph.FollowingSet(ctx, q.Viewer.ID)
		if err != nil {
			return nil, err
		}
		out.FollowingAuthors = make(map[uint]bool)
		for _, p := range posts {
			if set[p.UserID] {
				out.FollowingAuthors[p.UserID] = true
			}
		}
	}
	return out, nil
}

// ParseOrder maps the sort query value; unknown values mean newest.
func ParseOrder(sort string) repository.PostOrder {
	switch o := repository.PostOrder(sort); o {
	case repository.OrderMostLiked, repository.OrderMostCommented:
		return o
	default:
		return repository.OrderNewest
	}
}

// NormalizePage 页码、每页条数兜底并限制上限
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func TotalPages(total int64, limit int) int {
	if limit < 1 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func filterByCountry(posts []model.PostView, country string) []model.PostView {
	needle := strings.ToLower(country)
	out := make([]model.PostView, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.CountryName), needle) {
			out = append(out, p)
		}
	}
	return out
}
