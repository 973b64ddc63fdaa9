// Package services contains server-side business logic: the account and
// session operations behind every HTTP route.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

const (
	MaxUserNameLength = 64
	// bcrypt ignores input past 72 bytes, so longer passwords are refused.
	MaxPasswordBytes = 72
)

// AuthService implements signup, login, session-gated account changes and
// the user listing.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	sessions    *SessionManager
	log         logging.Logger

	// compared against when the username is unknown
	dummyHash string
}

// NewAuthService wires the service. It hashes one throwaway password up front
// so failed logins for unknown users cost the same as wrong passwords.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h auth.Hasher, sm *SessionManager, log logging.Logger) (*AuthService, error) {
	dummy, err := h.Hash("gophauth-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      h,
		sessions:    sm,
		log:         log,
		dummyHash:   dummy,
	}, nil
}

// Sessions exposes the session manager, e.g. for cookie lifetime.
func (s *AuthService) Sessions() *SessionManager { return s.sessions }

// NormalizeUserName trims surrounding whitespace and checks the length rules.
func NormalizeUserName(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(name) > MaxUserNameLength {
		return "", fmt.Errorf("%w: username must be at most %d characters", common.ErrorValidation, MaxUserNameLength)
	}
	return name, nil
}

// ValidatePassword checks a plaintext password before hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, MaxPasswordBytes)
	}
	return nil
}

// Signup creates a user. A taken username yields common.ErrorDuplicateUsername
// and leaves the existing record untouched.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*models.User, error) {
	name, err := NormalizeUserName(username)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "hash password", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{UserName: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", common.ErrorDuplicateUsername, name)
		}
		s.log.Error(ctx, "create user", "username", name, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	s.log.Info(ctx, "user signed up", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// Login checks the credentials and returns a new session id.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	name := strings.TrimSpace(username)

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", common.ErrorInvalidCredentials
		}
		s.log.Error(ctx, "lookup user", "username", name, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Debug(ctx, "login rejected", "user_id", user.ID)
		return "", common.ErrorInvalidCredentials
	}

	sid, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.log.Error(ctx, "create session", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return sid, nil
}

// AuthorizeRequest resolves a session id to its live user. Sessions whose
// user no longer exists are destroyed.
func (s *AuthService) AuthorizeRequest(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, common.ErrorUnauthorized
	}

	userID, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "lookup session", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			if derr := s.sessions.Destroy(ctx, sessionID); derr != nil {
				s.log.Warn(ctx, "destroy orphaned session", "user_id", userID, "error", derr)
			}
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "lookup session user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	return user, nil
}

// UpdatePassword replaces the password of the session's user. The calling
// session stays valid; the user's other sessions are destroyed.
func (s *AuthService) UpdatePassword(ctx context.Context, sessionID, newPassword string) error {
	user, err := s.AuthorizeRequest(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, user.ID, hash)
		if err != nil {
			return err
		}
		return dbx.ExpectRows(n, 1)
	})
	if err != nil {
		s.log.Error(ctx, "update password", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	// the new hash is committed; a failed revocation must not report the update as failed
	if err := s.sessions.DestroyOthers(ctx, user.ID, sessionID); err != nil {
		s.log.Warn(ctx, "revoke other sessions", "user_id", user.ID, "error", err)
	}

	s.log.Info(ctx, "password updated", "user_id", user.ID)
	return nil
}

// DeleteAccount removes the session's user and every session it had.
func (s *AuthService) DeleteAccount(ctx context.Context, sessionID string) error {
	user, err := s.AuthorizeRequest(ctx, sessionID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Users(tx).DeleteByID(ctx, user.ID)
		if err != nil {
			return err
		}
		return dbx.ExpectRows(n, 1)
	})
	if err != nil {
		s.log.Error(ctx, "delete account", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	// leftovers are harmless: AuthorizeRequest rejects sessions of missing users
	if err := s.sessions.DestroyOthers(ctx, user.ID, ""); err != nil {
		s.log.Warn(ctx, "destroy sessions of deleted user", "user_id", user.ID, "error", err)
	}

	s.log.Info(ctx, "account deleted", "user_id", user.ID, "username", user.UserName)
	return nil
}

// Logout destroys the session. Unknown or empty ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		s.log.Error(ctx, "destroy session", "error", err)
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	return nil
}

// ListUsers returns every user, oldest first, without password hashes.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		s.log.Error(ctx, "list users", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	return list, nil
}

// ResetPassword sets a new password for username without a session and
// revokes all of that user's sessions. It backs the admin CLI.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	var userID string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.GetUserByLogin(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}
		userID = u.ID

		n, err := repo.UpdatePasswordHash(ctx, u.ID, hash)
		if err != nil {
			return err
		}
		return dbx.ExpectRows(n, 1)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
		}
		s.log.Error(ctx, "reset password", "username", username, "error", err)
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	if err := s.sessions.DestroyOthers(ctx, userID, ""); err != nil {
		return fmt.Errorf("password updated, revoking sessions failed: %w", err)
	}

	s.log.Info(ctx, "password reset", "user_id", userID)
	return nil
}
