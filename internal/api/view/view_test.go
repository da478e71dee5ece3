package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererPages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := New()
	require.NoError(t, err)
	for _, name := range []string{"error", "home", "post", "post_form", "login", "register", "profile", "users", "country"} {
		assert.Contains(t, r.pages, name)
	}

	engine := gin.New()
	engine.HTMLRender = r
	engine.GET("/boom", func(c *gin.Context) { Error(c, http.StatusTeapot, "<b>nope</b>") })
	engine.GET("/login", func(c *gin.Context) { Page(c, http.StatusOK, "login", gin.H{"Email": "a@b.c"}) })
	engine.GET("/missing", func(c *gin.Context) { Page(c, http.StatusOK, "nope", nil) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, w.Body.String(), "&lt;b&gt;nope&lt;/b&gt;")
	assert.Contains(t, w.Body.String(), "<title>Error 418</title>")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Contains(t, w.Body.String(), `value="a@b.c"`)
	assert.Contains(t, w.Body.String(), `href="/register"`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, w.Body.String(), "page nope not found")
}

func TestExcerpt(t *testing.T) {
	excerpt := funcs["excerpt"].(func(string, int) string)
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "héll…", excerpt("héllo world", 4))
}
