package storage

import (
	"context"
	"fmt"
	"os"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	Dir        string // fs
	SQLitePath string // sqlite
	Redis      RedisOptions
}

// Open builds the backend named by opts.Driver. Callers should close the
// result when it implements Closer.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFS:
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewFS(opts.Dir)
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverRedis:
		return OpenRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
