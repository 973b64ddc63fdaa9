package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	msgInvalidCredentials = "Invalid username or password"
	msgDuplicateUsername  = "Username already exists"
	msgPasswordUpdated    = "Password updated successfully"
	msgAccountDeleted     = "Account deleted successfully"
	msgInternal           = "Internal Server Error"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", nil)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", nil)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	_, err := s.auth.Signup(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeText(w, http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, common.ErrorDuplicateUsername):
			writeText(w, http.StatusConflict, msgDuplicateUsername)
		default:
			s.internalError(w, r, err)
		}
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sid, err := s.auth.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			writeText(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		s.internalError(w, r, err)
		return
	}

	if err := s.setSessionCookie(w, sid); err != nil {
		if lerr := s.auth.Logout(r.Context(), sid); lerr != nil {
			s.logger.Warn(r.Context(), "drop unsent session", "error", lerr)
		}
		s.internalError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sid := s.sessionID(r); sid != "" {
		if err := s.auth.Logout(r.Context(), sid); err != nil {
			s.logger.Warn(r.Context(), "logout", "error", err)
		}
	}
	s.clearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home", map[string]any{"User": userFromContext(r.Context())})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.auth.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	names := make([]string, 0, len(list))
	for _, u := range list {
		names = append(names, u.UserName)
	}
	s.render(w, r, "notes", map[string]any{"Usernames": names})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	err := s.auth.UpdatePassword(r.Context(), sessionIDFromContext(r.Context()), r.FormValue("newPassword"))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			http.Redirect(w, r, "/", http.StatusSeeOther)
		case errors.Is(err, common.ErrorValidation):
			writeText(w, http.StatusBadRequest, validationMessage(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}
	writeText(w, http.StatusOK, msgPasswordUpdated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.DeleteAccount(r.Context(), sessionIDFromContext(r.Context())); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.internalError(w, r, err)
		return
	}
	s.clearCookie(w)
	writeText(w, http.StatusOK, msgAccountDeleted)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeText(w, http.StatusInternalServerError, msgInternal)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// validationMessage strips the sentinel prefix so users see only the rule
// they broke.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return msg
}
