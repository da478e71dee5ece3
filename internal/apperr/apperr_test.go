package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("verify: %w", ErrInvalidToken), http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrNotOwner, http.StatusForbidden},
		{fmt.Errorf("post 7: %w", ErrNotFound), http.StatusNotFound},
		{ErrSelfFollow, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrEmailTaken, http.StatusConflict},
		{ErrUpstream, http.StatusBadGateway},
		{ErrInvalidResourceType, http.StatusInternalServerError},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), "%v", c.err)
	}
}

func TestPublicMessageHidesStorageErrors(t *testing.T) {
	assert.Equal(t, "server error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, ErrNotOwner.Error(), PublicMessage(ErrNotOwner))
	assert.Equal(t, "country api: "+ErrUpstream.Error(), PublicMessage(fmt.Errorf("country api: %w", ErrUpstream)))
}
