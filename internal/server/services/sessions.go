package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
)

// expiredDeleter is implemented by stores that keep expired sessions around
// until someone removes them (Postgres and memory; Redis expires keys itself).
type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager mints and resolves opaque session ids over a
// sessions.Repository.
type SessionManager struct {
	store sessions.Repository
	ttl   time.Duration

	now   func() time.Time
	newID func() (string, error)
}

func NewSessionManager(store sessions.Repository, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		newID: func() (string, error) { return common.MakeRandHexString(common.SessionIDSize) },
	}
}

// TTL is the lifetime given to new sessions.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Create stores a fresh session for userID and returns its id.
func (m *SessionManager) Create(ctx context.Context, userID string) (string, error) {
	id, err := m.newID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	s := &models.Session{ID: id, UserID: userID, ExpiresAt: m.now().Add(m.ttl)}
	if err := m.store.Create(ctx, s); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Lookup returns the user behind sessionID. Absent and expired sessions both
// yield common.ErrorNotFound; expired ones are deleted on the way.
func (m *SessionManager) Lookup(ctx context.Context, sessionID string) (string, error) {
	s, err := m.store.Find(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return "", fmt.Errorf("delete expired session: %w", err)
		}
		return "", common.ErrorNotFound
	}
	return s.UserID, nil
}

// Destroy removes sessionID. Unknown ids are not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// DestroyOthers removes every session of userID except keep. An empty keep
// removes them all.
func (m *SessionManager) DestroyOthers(ctx context.Context, userID, keep string) error {
	return m.store.DeleteByUser(ctx, userID, keep)
}

// PurgeExpired deletes expired sessions from stores that do not expire them
// on their own, reporting how many went away.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	d, ok := m.store.(expiredDeleter)
	if !ok {
		return 0, nil
	}
	return d.DeleteExpired(ctx)
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }
