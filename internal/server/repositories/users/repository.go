package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the credential store. Every method is a single statement,
// so implementations bound to a *sql.Tx compose into larger transactions.
type Repository interface {
	// Create assigns a new id and inserts the user. A taken username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns common.ErrorNotFound for unknown usernames.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// GetUserByID returns common.ErrorNotFound for unknown ids.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash overwrites the hash and reports affected rows.
	UpdatePasswordHash(ctx context.Context, id string, hash string) (int64, error)

	// DeleteByID removes the user and reports affected rows.
	DeleteByID(ctx context.Context, id string) (int64, error)

	// List returns every user ordered by creation time, without hashes.
	List(ctx context.Context) ([]models.User, error)
}
