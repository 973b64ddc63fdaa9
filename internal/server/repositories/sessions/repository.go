// Package sessions declares the server-side session store contract and its
// PostgreSQL, Redis and in-memory implementations.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores sessions keyed by their opaque id.
type Repository interface {
	// Create stores a new session. Ids are unique; storing an id twice is an error.
	Create(ctx context.Context, s *models.Session) error

	// Find returns the session with the given id, or common.ErrorNotFound.
	// Expiry is not checked here; callers compare ExpiresAt themselves.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes every session of userID except exceptID
	// (an empty exceptID removes them all).
	DeleteByUser(ctx context.Context, userID string, exceptID string) error
}
