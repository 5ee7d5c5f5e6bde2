package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passgate/internal/server/config"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/passgate/internal/server/repositories/users"
)

// Backends bundles the stores the gateway runs on.
type Backends struct {
	Directory users.Directory
	Sessions  sessions.Store
	// DB is the Postgres pool; nil for the in-memory directory.
	DB *sql.DB

	closers []func() error
}

// seams for tests
var (
	sqlOpen       = sql.Open
	newRedisStore = func(ctx context.Context, cfg sessions.RedisConfig) (sessions.Store, func() error, error) {
		s, err := sessions.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
)

// Open builds the user directory and session store selected by cfg. For
// Postgres it applies pending migrations before returning.
func Open(ctx context.Context, cfg *config.Config, m RepositoryManager) (*Backends, error) {
	b := &Backends{}

	switch cfg.DirectoryBackend {
	case "", "memory":
		b.Directory = users.NewMemoryDirectory()
	case "postgres":
		db, err := sqlOpen("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
		b.DB = db
		b.Directory = m.Users(db)
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.DirectoryBackend)
	}

	switch cfg.SessionBackend {
	case "", "memory":
		b.Sessions = sessions.NewMemoryStore(cfg.SessionTTL)
	case "redis":
		s, closeFn, err := newRedisStore(ctx, sessions.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("session store init error: %w", err)
		}
		b.closers = append(b.closers, closeFn)
		b.Sessions = s
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	return b, nil
}

// Ping reports the first unreachable backend.
func (b *Backends) Ping(ctx context.Context) error {
	if b.DB != nil {
		if err := b.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("directory: %w", err)
		}
	}
	if err := b.Sessions.Ping(ctx); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

// Close releases every opened connection in reverse order.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
