package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-tales/internal/apperr"
)

func init() { gin.SetMode(gin.TestMode) }

func run(h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestSuccessEnvelope(t *testing.T) {
	w := run(func(c *gin.Context) { Success(c, gin.H{"id": 1}) })
	assert.Equal(t, http.StatusOK, w.Code)
	r := decode(t, w)
	assert.True(t, r.Success)
	assert.Empty(t, r.Error)
}

func TestErrorMapsTaxonomy(t *testing.T) {
	w := run(func(c *gin.Context) { Error(c, fmt.Errorf("post 3: %w", apperr.ErrNotOwner)) })
	assert.Equal(t, http.StatusForbidden, w.Code)
	r := decode(t, w)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "permission")

	w = run(func(c *gin.Context) { Error(c, errors.New("database is locked")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "server error", decode(t, w).Error)
}
