// Package handler holds the HTTP endpoints of the blog. Every endpoint answers
// JSON clients with the response envelope and browsers with a page or a
// redirect, as decided by middleware.WantsJSON.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/client/country"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/response"
	"github.com/d60-Lab/travel-tales/pkg/validation"
)

// CountryLookup is satisfied by *country.Client.
type CountryLookup interface {
	ListCountries(ctx context.Context) ([]country.CountrySummary, error)
	Details(ctx context.Context, name string) (*country.CountryDetails, error)
}

type Deps struct {
	Users     service.UserService
	Posts     service.PostService
	Comments  service.CommentService
	Graph     service.SocialGraph
	Feed      *service.FeedEngine
	Tokens    *auth.TokenIssuer
	Authn     *middleware.Authenticator
	Countries CountryLookup
}

type Handler struct {
	users     service.UserService
	posts     service.PostService
	comments  service.CommentService
	graph     service.SocialGraph
	feed      *service.FeedEngine
	tokens    *auth.TokenIssuer
	authn     *middleware.Authenticator
	countries CountryLookup
}

func New(d Deps) *Handler {
	return &Handler{
		users:     d.Users,
		posts:     d.Posts,
		comments:  d.Comments,
		graph:     d.Graph,
		feed:      d.Feed,
		tokens:    d.Tokens,
		authn:     d.Authn,
		countries: d.Countries,
	}
}

// idParam parses a positive numeric path parameter, writing a 400 on failure.
func (h *Handler) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.authn.Deny(c, fmt.Errorf("%w: %s must be a positive integer", apperr.ErrInvalidInput, name))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func bindError(err error) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, validation.Describe(err))
}

// done finishes a mutation: JSON clients get data, browsers go to location.
func done(c *gin.Context, created bool, data any, location string) {
	switch {
	case !middleware.WantsJSON(c):
		c.Redirect(http.StatusFound, location)
	case created:
		response.Created(c, data)
	default:
		response.Success(c, data)
	}
}
