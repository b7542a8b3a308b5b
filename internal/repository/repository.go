// Package repository declares the persistence contracts the service layer
// depends on. Implementations live in sub-packages (see sqlstore).
package repository

import (
	"context"
	"time"

	"github.com/sakif/travelboard/internal/model"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create inserts a new user, assigning ID and CreatedAt.
	// Returns apperror.DuplicateEmail if the (normalised) email is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// LinkGitHub attaches a GitHub account id to an existing user.
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
}

// SessionRepository persists server-side sessions keyed by token hash.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// Get returns apperror.ErrNotFound for unknown hashes.
	Get(ctx context.Context, tokenHash string) (*model.Session, error)
	// End marks the session logged out. Ending an already-ended or unknown
	// session is not an error.
	End(ctx context.Context, tokenHash string, at time.Time) error
}

// OwnedRepository is the single persistence contract shared by every
// user-owned collection. Every method is scoped to ownerID: rows belonging
// to other users are invisible, and touching one reads as not found.
type OwnedRepository[T any] interface {
	// List returns the owner's rows in the collection's deterministic order.
	List(ctx context.Context, ownerID string) ([]T, error)

	// Get returns apperror.ErrNotFound if id does not exist or is not owned.
	Get(ctx context.Context, ownerID, id string) (*T, error)

	// Create assigns a fresh id and timestamp to item and inserts it.
	//
	// When idempotencyKey is non-empty and the owner already used it, nothing
	// is inserted: item is overwritten with the earlier resource and replayed
	// is true.
	Create(ctx context.Context, ownerID string, item *T, idempotencyKey string) (replayed bool, err error)

	// Delete returns apperror.ErrNotFound if id does not exist or is not owned.
	Delete(ctx context.Context, ownerID, id string) error
}
