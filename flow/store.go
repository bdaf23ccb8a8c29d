package flow

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing flow id or slug.
var ErrNotFound = errors.New("flow: not found")

// Store is the flow persistence contract. Both backends behave
// identically; not-found conditions surface as ErrNotFound, never as a
// nil flow with a nil error.
type Store interface {
	Create(ctx context.Context, draft Draft) (*Flow, error)
	Get(ctx context.Context, id string) (*Flow, error)
	GetBySlug(ctx context.Context, slug string) (*Flow, error)
	List(ctx context.Context, publishedOnly bool) ([]*Flow, error)
	Update(ctx context.Context, id string, draft Draft) (*Flow, error)
	Publish(ctx context.Context, id string) (*Flow, error)
	Unpublish(ctx context.Context, id string) (*Flow, error)
	Delete(ctx context.Context, id string) error
}
