// Package backend opens the byte store selected by configuration.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/gitrepo"
	"spreadsheet/api/internal/persist"
	"spreadsheet/api/internal/store"
)

// Backend is an opened store. DB is set only for the postgres backend.
type Backend struct {
	Name  string
	Store persist.ByteStore
	DB    *sql.DB
}

// Versioned returns the store as a persist.Versioned when it keeps history.
func (b *Backend) Versioned() (persist.Versioned, bool) {
	v, ok := b.Store.(persist.Versioned)
	return v, ok
}

func (b *Backend) Close() error {
	return b.Store.Close()
}

func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return &Backend{Name: config.BackendMemory, Store: persist.NewMemoryStore()}, nil

	case config.BackendRedis:
		redisStore, err := persist.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &Backend{Name: cfg.Backend, Store: redisStore}, nil

	case config.BackendPostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return &Backend{Name: cfg.Backend, Store: store.NewPostgresStore(db), DB: db}, nil

	case config.BackendS3:
		objectStore, err := persist.NewObjectStore(ctx, persist.ObjectStoreOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{Name: cfg.Backend, Store: objectStore}, nil

	case config.BackendGit:
		if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
			return nil, fmt.Errorf("create repos dir: %w", err)
		}
		return &Backend{Name: cfg.Backend, Store: gitrepo.New(cfg.ReposDir)}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// OpenOrMemory falls back to an in-memory store when the configured
// backend cannot be opened. Sheets keep working; nothing survives a
// restart.
func OpenOrMemory(ctx context.Context, cfg config.Config) *Backend {
	b, err := Open(ctx, cfg)
	if err != nil {
		log.Printf("persist: backend %s unavailable, using memory: %v", cfg.Backend, err)
		return &Backend{Name: config.BackendMemory, Store: persist.NewMemoryStore()}
	}
	return b
}
