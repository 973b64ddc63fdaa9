package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeUsers is an in-memory users.Repository. Error fields, when set, are
// returned by the matching method instead of touching state.
type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]models.User
	nextID int

	createErr error
	getErr    error
	updateErr error
	deleteErr error
	listErr   error

	// when >= 0, reported instead of the real affected row count
	forceRows int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]models.User{}, forceRows: -1}
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.UserName == u.UserName {
			return nil, fmt.Errorf("duplicate: %w", common.ErrorAlreadyExists)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	u.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC)
	f.byID[u.ID] = *u
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == login {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (f *fakeUsers) UpdatePasswordHash(ctx context.Context, id string, hash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	if f.forceRows >= 0 {
		return f.forceRows, nil
	}
	u, ok := f.byID[id]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return 1, nil
}

func (f *fakeUsers) DeleteByID(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	if f.forceRows >= 0 {
		return f.forceRows, nil
	}
	if _, ok := f.byID[id]; !ok {
		return 0, nil
	}
	delete(f.byID, id)
	return 1, nil
}

func (f *fakeUsers) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		u.PasswordHash = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeUsers) hashOf(t *testing.T, username string) string {
	t.Helper()
	u, err := f.GetUserByLogin(context.Background(), username)
	require.NoError(t, err)
	return u.PasswordHash
}

// fakeManager hands out the same fake users repo for any DBTX.
type fakeManager struct {
	users    *fakeUsers
	sessions sessions.Repository
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository          { return m.users }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository    { return m.sessions }

// countingHasher records how many Verify calls were made.
type countingHasher struct {
	auth.Hasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.Hasher.Verify(password, hash)
}

type fixture struct {
	svc    *AuthService
	users  *fakeUsers
	store  *sessions.MemoryRepository
	sm     *SessionManager
	hasher *countingHasher
	mock   sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fu := newFakeUsers()
	store := sessions.NewMemoryRepository()
	sm := NewSessionManager(store, time.Hour)
	h := &countingHasher{Hasher: auth.NewBcryptHasher(bcrypt.MinCost)}

	svc, err := NewAuthService(db, &fakeManager{users: fu, sessions: store}, h, sm, logging.Nop{})
	require.NoError(t, err)

	return &fixture{svc: svc, users: fu, store: store, sm: sm, hasher: h, mock: mock}
}

func (f *fixture) expectTx(commit bool) {
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

func (f *fixture) signup(t *testing.T, username, password string) *models.User {
	t.Helper()
	u, err := f.svc.Signup(context.Background(), username, password)
	require.NoError(t, err)
	return u
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	sid, err := f.svc.Login(context.Background(), username, password)
	require.NoError(t, err)
	return sid
}

// brokenRevocationStore fails every DeleteByUser.
type brokenRevocationStore struct {
	*sessions.MemoryRepository
}

func (brokenRevocationStore) DeleteByUser(context.Context, string, string) error {
	return errors.New("store down")
}
