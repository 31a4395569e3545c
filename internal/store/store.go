package store

import (
	"context"
	"errors"

	"github.com/spigell/shift-swap/internal/shift"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrClosed            = errors.New("store is closed")
)

// Store is the room holding every post and match. Implementations serialize
// mutations and return copies, so callers always see a consistent snapshot.
type Store interface {
	CreatePost(ctx context.Context, in shift.PostInput) (shift.Post, error)
	// ListOpenPosts returns open posts, most recently created first.
	ListOpenPosts(ctx context.Context) ([]shift.Post, error)
	GetPost(ctx context.Context, id string) (shift.Post, error)
	UpdateStatus(ctx context.Context, id string, next shift.Status) (shift.Post, error)

	// RecordMatch fails with ErrNotFound when the requesting post does not exist.
	RecordMatch(ctx context.Context, in shift.MatchInput) (shift.Match, error)
	ListMatches(ctx context.Context) ([]shift.Match, error)

	// Clear removes all posts and matches.
	Clear(ctx context.Context) error
	Close() error
}
