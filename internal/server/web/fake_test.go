package web

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a minimal in-memory AuthService. Setting err makes every call
// fail with it.
type fakeAuth struct {
	mu       sync.Mutex
	users    map[string]*models.User // by username
	passes   map[string]string       // username -> password
	sessions map[string]string       // session id -> username
	order    []string
	next     int
	err      error

	logouts []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		users:    map[string]*models.User{},
		passes:   map[string]string{},
		sessions: map[string]string{},
	}
}

func (f *fakeAuth) Signup(ctx context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if _, ok := f.users[username]; ok {
		return nil, common.ErrorDuplicateUsername
	}
	f.next++
	u := &models.User{ID: fmt.Sprintf("u-%d", f.next), UserName: username}
	f.users[username] = u
	f.passes[username] = password
	f.order = append(f.order, username)
	return u, nil
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if p, ok := f.passes[username]; !ok || p != password {
		return "", common.ErrorInvalidCredentials
	}
	f.next++
	sid := fmt.Sprintf("sid-%d", f.next)
	f.sessions[sid] = username
	return sid, nil
}

func (f *fakeAuth) AuthorizeRequest(ctx context.Context, sessionID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.sessions[sessionID]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return f.users[name], nil
}

func (f *fakeAuth) UpdatePassword(ctx context.Context, sessionID, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	name, ok := f.sessions[sessionID]
	if !ok {
		return common.ErrorUnauthorized
	}
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	f.passes[name] = newPassword
	return nil
}

func (f *fakeAuth) DeleteAccount(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	name, ok := f.sessions[sessionID]
	if !ok {
		return common.ErrorUnauthorized
	}
	delete(f.users, name)
	delete(f.passes, name)
	for sid, n := range f.sessions {
		if n == name {
			delete(f.sessions, sid)
		}
	}
	return nil
}

func (f *fakeAuth) Logout(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, sessionID)
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeAuth) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.User
	for _, name := range f.order {
		if u, ok := f.users[name]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T, svc AuthService) *Server {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", logging.Nop{}, svc, CookieSettings{
		Name:   "sid",
		TTL:    time.Hour,
		Secret: testSecret,
	})
	require.NoError(t, err)
	return srv
}
