package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	srv := newTestServer(t, newFakeAuth())

	valid, err := auth.SignSessionID("abc", testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.SignSessionID("abc", testSecret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   string
	}{
		{"no cookie", nil, ""},
		{"empty", &http.Cookie{Name: "sid", Value: ""}, ""},
		{"other name", &http.Cookie{Name: "session", Value: valid}, ""},
		{"valid", &http.Cookie{Name: "sid", Value: valid}, "abc"},
		{"expired", &http.Cookie{Name: "sid", Value: expired}, ""},
		{"garbage", &http.Cookie{Name: "sid", Value: "garbage"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			assert.Equal(t, tt.want, srv.sessionID(req))
		})
	}
}

func TestRequireAuth_PutsUserInContext(t *testing.T) {
	svc := newFakeAuth()
	srv := newTestServer(t, svc)
	_, _ = svc.Signup(context.Background(), "alice", "pw")
	sid, err := svc.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	token, err := auth.SignSessionID(sid, testSecret, time.Hour)
	require.NoError(t, err)

	var gotUser, gotSID string
	h := srv.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = userFromContext(r.Context()).UserName
		gotSID = sessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, sid, gotSID)
}

func TestSetSessionCookie_Secure(t *testing.T) {
	srv := newTestServer(t, newFakeAuth())
	srv.cookie.Secure = true

	w := httptest.NewRecorder()
	require.NoError(t, srv.setSessionCookie(w, "abc"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
}

func TestContextHelpers_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, userFromContext(req.Context()))
	assert.Empty(t, sessionIDFromContext(req.Context()))
}
