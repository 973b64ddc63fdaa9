package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

// signSessionID is a seam for tests.
var signSessionID = auth.SignSessionID

type ctxKey string

const (
	userKey      ctxKey = "user"
	sessionIDKey ctxKey = "sessionID"
)

// requireAuth resolves the session cookie to a user. Anonymous requests are
// sent back to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := s.sessionID(r)

		user, err := s.auth.AuthorizeRequest(r.Context(), sid)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				if sid != "" {
					s.clearCookie(w)
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			s.internalError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func sessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// sessionID extracts the session id from the signed cookie, or "" when the
// cookie is missing, tampered with or expired.
func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		return ""
	}
	sid, err := auth.SessionIDFromToken(c.Value, s.cookie.Secret)
	if err != nil {
		s.logger.Debug(r.Context(), "rejected session cookie", "error", err)
		return ""
	}
	return sid
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) error {
	token, err := signSessionID(sessionID, s.cookie.Secret, s.cookie.TTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestLogger writes one line per request with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
