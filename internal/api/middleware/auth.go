package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

const (
	identityKey = "auth.identity"
	sessionKey  = "auth.session"
	authErrKey  = "auth.error"

	LoginPath = "/login"
)

// ErrorRenderer writes a browser-facing error page.
type ErrorRenderer func(c *gin.Context, status int, msg string)

type CookieOptions struct {
	Name   string
	Secure bool
}

// Authenticator 把会话/令牌认证接入 gin
type Authenticator struct {
	gateway  *auth.Gateway
	sessions *auth.SessionManager
	cookie   CookieOptions
	render   ErrorRenderer
}

func NewAuthenticator(gateway *auth.Gateway, sessions *auth.SessionManager, cookie CookieOptions, render ErrorRenderer) *Authenticator {
	if render == nil {
		render = func(c *gin.Context, status int, msg string) { c.String(status, msg) }
	}
	if cookie.Name == "" {
		cookie.Name = "travel_session"
	}
	return &Authenticator{gateway: gateway, sessions: sessions, cookie: cookie, render: render}
}

// Authenticate resolves the request identity and stores it on the context.
// It never rejects; route guards decide what an anonymous request may do.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *auth.SessionContext
		if sid, err := c.Cookie(a.cookie.Name); err == nil && sid != "" {
			s, err := a.sessions.Load(c.Request.Context(), sid)
			switch {
			case err == nil:
				sess = s
				c.Set(sessionKey, s)
			case errors.Is(err, auth.ErrSessionNotFound):
				a.clearCookie(c)
			default:
				logger.Warn("session load failed", zap.Error(err))
			}
		}

		id, err := a.gateway.Authenticate(auth.Credentials{
			Session:       sess,
			Authorization: c.GetHeader("Authorization"),
		})
		if err == nil {
			c.Set(identityKey, id)
			metrics.RecordAuth(string(id.Provenance))
		} else {
			c.Set(authErrKey, err)
			if errors.Is(err, apperr.ErrInvalidToken) {
				metrics.RecordAuth("invalid_token")
			} else {
				metrics.RecordAuth("anonymous")
			}
		}
		c.Next()
	}
}

// RequireIdentity accepts a session or a bearer token.
func (a *Authenticator) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			a.unauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireSession only accepts browser sessions.
func (a *Authenticator) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).FromSession() {
			a.unauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireOwner runs the ownership guard on the resource id in param.
func (a *Authenticator) RequireOwner(guard *auth.OwnershipGuard, kind auth.ResourceKind, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			a.Deny(c, apperr.ErrInvalidInput)
			return
		}
		if err := guard.Authorize(c.Request.Context(), kind, uint(id), IdentityFrom(c)); err != nil {
			a.Deny(c, err)
			return
		}
		c.Next()
	}
}

// Deny writes err in the shape the client expects and aborts.
func (a *Authenticator) Deny(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		a.unauthenticated(c)
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Error("authorization failed", zap.Error(err), zap.String("path", c.FullPath()))
		_ = c.Error(err)
	}
	if WantsJSON(c) {
		response.Fail(c, status, apperr.PublicMessage(err))
		return
	}
	a.render(c, status, apperr.PublicMessage(err))
	c.Abort()
}

func (a *Authenticator) unauthenticated(c *gin.Context) {
	if WantsJSON(c) {
		err := apperr.ErrUnauthenticated
		if v, ok := c.Get(authErrKey); ok {
			if e, ok := v.(error); ok && errors.Is(e, apperr.ErrInvalidToken) {
				err = apperr.ErrInvalidToken
			}
		}
		response.Unauthorized(c, err.Error())
		return
	}
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}

// StartSession creates a session for id and sets the cookie.
func (a *Authenticator) StartSession(c *gin.Context, id auth.Identity) (*auth.SessionContext, error) {
	s, err := a.sessions.Create(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.Name, s.ID, int(a.sessions.TTL().Seconds()), "/", "", a.cookie.Secure, true)
	return s, nil
}

// EndSession destroys the current session, if any, and clears the cookie.
func (a *Authenticator) EndSession(c *gin.Context) error {
	a.clearCookie(c)
	if s := SessionFrom(c); s != nil {
		return a.sessions.Destroy(c.Request.Context(), s.ID)
	}
	return nil
}

func (a *Authenticator) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.Name, "", -1, "/", "", a.cookie.Secure, true)
}

// IdentityFrom returns the request identity or nil for anonymous requests.
func IdentityFrom(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}

func SessionFrom(c *gin.Context) *auth.SessionContext {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*auth.SessionContext); ok {
			return s
		}
	}
	return nil
}
