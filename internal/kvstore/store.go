// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package kvstore provides the durable string key-value store that backs
// activation settings across launches.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

var (
	ErrClosed         = errors.New("kvstore: store is closed")
	ErrUnknownBackend = errors.New("kvstore: unknown backend")
)

// Store is a durable string key-value store. Get reports found=false for
// absent keys; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir holds the sqlite, file and badger data. Empty with a file-based
	// backend falls back to memory.
	Dir   string
	Redis RedisConfig
}

// Open creates a store for cfg.Backend. An empty backend means sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(cfg.Dir, "settings.sqlite"))
	case BackendFile:
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewFileStore(filepath.Join(cfg.Dir, "settings.json"))
	case BackendBadger:
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return OpenBadgerStore(filepath.Join(cfg.Dir, "settings.badger"))
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %s (supported: sqlite, file, badger, redis, memory)", ErrUnknownBackend, backend)
	}
}
