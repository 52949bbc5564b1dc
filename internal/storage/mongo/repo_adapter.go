// Package mongo adapter: this file registers the "mongo" kind with the
// storage registry. DSN is the client URI and Table is "database.collection".
//
// MongoDB has no table DDL, so the registered bootstrapper only logs; the
// collection appears on the first InsertMany.
package mongo

import (
	"context"
	"log"

	"evadoption/internal/frame"
	"evadoption/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace it to avoid a live server.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository over *Repository and
// disconnects the client on Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Ensure wrappedRepo satisfies storage.Repository at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// init registers "mongo" with the storage factory and a no-op DDL step.
func init() {
	storage.Register("mongo", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table, Columns: cfg.Columns})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	// Collections are created on first insert.
	storage.RegisterDDL("mongo", func(_ context.Context, _ storage.Repository, table string, f *frame.Frame) error {
		log.Printf("mongo: ddl skipped collection=%s cols=%d", table, f.Width())
		return nil
	})
}
