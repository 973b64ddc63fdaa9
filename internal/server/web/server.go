// Package web is the HTML front end of gophauth: a chi router with form
// handlers, session cookie handling and embedded views.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthService is what the handlers need from services.AuthService.
type AuthService interface {
	Signup(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	AuthorizeRequest(ctx context.Context, sessionID string) (*models.User, error)
	UpdatePassword(ctx context.Context, sessionID, newPassword string) error
	DeleteAccount(ctx context.Context, sessionID string) error
	Logout(ctx context.Context, sessionID string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// CookieSettings describes the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
	TTL    time.Duration
	Secret []byte
}

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	address string
	auth    AuthService
	cookie  CookieSettings
	views   *views
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, svc AuthService, cookie CookieSettings) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Server{
		address: address,
		auth:    svc,
		cookie:  cookie,
		views:   v,
		logger:  l.With("module", "http_server"),
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", s.handleLoginPage)
	r.Get("/signup", s.handleSignupPage)
	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/notes", s.handleNotes)
	r.Get("/ping", s.handlePing)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/home", s.handleHome)
		r.Post("/update-password", s.handleUpdatePassword)
		r.Post("/delete-account", s.handleDeleteAccount)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
