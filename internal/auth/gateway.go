package auth

import (
	"strings"

	"github.com/d60-Lab/travel-tales/internal/apperr"
)

const bearerPrefix = "Bearer "

// Credentials is everything a request presents for authentication.
type Credentials struct {
	Session       *SessionContext
	Authorization string
}

// TokenVerifier is satisfied by *TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// Gateway 统一认证入口：会话优先，其次 Bearer token
type Gateway struct {
	tokens TokenVerifier
}

func NewGateway(tokens TokenVerifier) *Gateway { return &Gateway{tokens: tokens} }

// Authenticate resolves credentials to an Identity without side effects.
// An authenticated session wins even when a token is also present.
func (g *Gateway) Authenticate(c Credentials) (*Identity, error) {
	if id := c.Session.Identity(); id != nil {
		return id, nil
	}
	if c.Authorization == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if !strings.HasPrefix(c.Authorization, bearerPrefix) {
		return nil, apperr.ErrUnauthenticated
	}
	token := strings.TrimSpace(strings.TrimPrefix(c.Authorization, bearerPrefix))
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return g.tokens.Verify(token)
}
