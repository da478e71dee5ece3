package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

var sortOptions = []string{
	string(repository.OrderNewest),
	string(repository.OrderMostLiked),
	string(repository.OrderMostCommented),
}

// Home 首页 feed
// @Summary 首页 feed
// @Description 排序、分页，可按国家过滤当前页；登录用户会标注已关注的作者
// @Tags feed
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param sort query string false "newest | most_liked | most_commented" default(newest)
// @Param country query string false "国家名子串，不区分大小写"
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Router / [get]
func (h *Handler) Home(c *gin.Context) {
	page, err := h.feed.ComposeFeed(c.Request.Context(), service.FeedQuery{
		Page:    queryInt(c, "page"),
		Limit:   queryInt(c, "limit"),
		Sort:    c.Query("sort"),
		Country: c.Query("country"),
		Viewer:  middleware.IdentityFrom(c),
	})
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		response.Success(c, page)
		return
	}

	following := page.FollowingAuthors
	if following == nil {
		following = map[uint]bool{}
	}
	view.Page(c, http.StatusOK, "home", gin.H{
		"Posts":            page.Posts,
		"Pagination":       page.Pagination,
		"Sort":             page.Sort,
		"Sorts":            sortOptions,
		"Country":          page.Country,
		"FollowingAuthors": following,
	})
}
