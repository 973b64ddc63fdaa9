package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

// Backend is the storage side of gophauth: the database, the session store
// and the services on top of them. The HTTP app and the admin CLI share it.
type Backend struct {
	Auth     *services.AuthService
	Sessions *services.SessionManager

	db      *sql.DB
	closers []io.Closer
	logger  logging.Logger
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// newRepoManager is a seam for tests.
var newRepoManager = repomanager.NewPostgresRepositoryManager

// OpenBackend connects to the database, applies migrations and wires the
// configured session backend. Close releases everything it opened.
func OpenBackend(ctx context.Context, c *config.Config, logger logging.Logger) (*Backend, error) {
	b := &Backend{logger: logger}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	b.db = db
	b.closers = append(b.closers, db)

	if err := db.PingContext(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		b.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := b.newSessionStore(ctx, c, rm)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Sessions = services.NewSessionManager(store, c.SessionTTL)

	b.Auth, err = services.NewAuthService(db, rm, auth.NewBcryptHasher(c.BcryptCost), b.Sessions, logger.With("module", "auth_service"))
	if err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) newSessionStore(ctx context.Context, c *config.Config, rm repomanager.RepositoryManager) (sessions.Repository, error) {
	switch c.SessionBackend {
	case config.SessionBackendPostgres:
		return rm.Sessions(b.db), nil
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		b.closers = append(b.closers, client)
		return sessions.NewRedisRepository(client), nil
	case config.SessionBackendMemory:
		b.logger.Warn(ctx, "using in-memory sessions; they are lost on restart")
		return sessions.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			b.logger.Warn(context.Background(), "close resource", "error", err)
		}
	}
	b.closers = nil
}
