// Package apperr holds the domain error taxonomy shared by services,
// the auth layer and the HTTP edge.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotOwner            = errors.New("you do not have permission to perform this action")
	ErrNotFound            = errors.New("resource not found")
	ErrSelfFollow          = errors.New("cannot follow yourself")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTaken          = errors.New("email already in use")
	ErrInvalidResourceType = errors.New("invalid resource type")
	ErrUpstream            = errors.New("upstream service unavailable")
)

// HTTPStatus maps an error to the status code returned at the edge.
// Anything unclassified is a storage or programming failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSelfFollow), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client for err.
func PublicMessage(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError && !errors.Is(err, ErrUpstream) {
		return "server error"
	}
	return err.Error()
}
