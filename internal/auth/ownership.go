package auth

import (
	"context"
	"fmt"

	"github.com/d60-Lab/travel-tales/internal/apperr"
)

// ResourceKind 受所有权保护的资源类型，集合封闭：包外只能使用下面的值，
// 零值会被 Authorize 拒绝
type ResourceKind struct {
	name string
}

var (
	ResourcePost    = ResourceKind{name: "post"}
	ResourceComment = ResourceKind{name: "comment"}
)

func (k ResourceKind) String() string {
	if k.name == "" {
		return "unknown"
	}
	return k.name
}

// OwnerLookup returns the author id of a resource, or an error wrapping
// apperr.ErrNotFound when it does not exist.
type OwnerLookup interface {
	OwnerID(ctx context.Context, id uint) (uint, error)
}

type OwnershipGuard struct {
	lookups map[ResourceKind]OwnerLookup
}

func NewOwnershipGuard(posts, comments OwnerLookup) *OwnershipGuard {
	return &OwnershipGuard{lookups: map[ResourceKind]OwnerLookup{
		ResourcePost:    posts,
		ResourceComment: comments,
	}}
}

// Authorize returns nil when identity owns the resource.
func (g *OwnershipGuard) Authorize(ctx context.Context, kind ResourceKind, id uint, identity *Identity) error {
	if identity == nil {
		return apperr.ErrUnauthenticated
	}
	lookup, ok := g.lookups[kind]
	if !ok || lookup == nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidResourceType, kind)
	}
	owner, err := lookup.OwnerID(ctx, id)
	if err != nil {
		return err
	}
	if owner != identity.ID {
		return apperr.ErrNotOwner
	}
	return nil
}
