package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/storage/redis"
	"github.com/steveyegge/slogan-gen/internal/storage/sqlite"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// Storage defines the interface for session history backends. Only
// completed sessions are stored; lookups of unknown ids fail with
// types.ErrNotFound.
type Storage interface {
	SaveSession(ctx context.Context, session *types.Session) error
	GetSession(ctx context.Context, id string) (*types.Session, error)

	// ListSessions returns sessions newest first. limit <= 0 means no limit
	// and an empty reason matches every session.
	ListSessions(ctx context.Context, limit int, reason types.CompletionReason) ([]*types.Session, error)

	DeleteSession(ctx context.Context, id string) error

	// Prune deletes sessions started before cutoff except the newest keep.
	Prune(ctx context.Context, cutoff time.Time, keep int) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks
var (
	_ Storage = (*sqlite.SQLiteStorage)(nil)
	_ Storage = (*redis.Store)(nil)
)

// Open creates the store selected by cfg. It returns nil, nil when storage
// is disabled.
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Kind {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreSQLite:
		store, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Retention.Enabled() {
			opts = append(opts, redis.WithTTL(cfg.Retention.MaxAge()))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// ApplyRetention prunes store according to cfg. Disabled retention is a
// no-op.
func ApplyRetention(ctx context.Context, store Storage, cfg config.RetentionConfig, now time.Time) (int, error) {
	if store == nil || !cfg.Enabled() {
		return 0, nil
	}
	return store.Prune(ctx, now.Add(-cfg.MaxAge()), cfg.Keep)
}
