package service

import (
	"context"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
)

// RequireOwner is the ownership gate every collection operation passes
// through: it yields the authenticated user's id, or Unauthenticated.
//
// The second half of the guard lives in the store: every query is scoped by
// owner_id, so a foreign id reads exactly like a missing one (NotFound).
func RequireOwner(ctx context.Context) (string, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", apperror.Unauthenticated()
	}
	return id, nil
}
