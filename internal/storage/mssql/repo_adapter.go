// Package mssql adapter: this file wires the SQL Server backend into the
// storage registry at init time. cmd/evmerge then obtains a Repository with
// storage.New(ctx, storage.Config{Kind: "mssql", ...}) and imports this
// package only through storage/all.
//
// The adapter also registers a DDL bootstrapper, so storage.EnsureTable can
// create the target table from the cleaned frame's column kinds without the
// caller branching on the backend.
package mssql

import (
	"context"
	"fmt"

	"evadoption/internal/ddl"
	"evadoption/internal/frame"
	"evadoption/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace it to avoid real database connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to
// the bulk-copy *Repository. Close calls the close function
// returned by NewRepository.
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

// init registers "mssql" with the storage factory and a DDL bootstrapper that
// renders an OBJECT_ID-guarded CREATE TABLE with BIGINT, FLOAT and NVARCHAR(MAX) columns.
func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table, Columns: cfg.Columns})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	// Every column is nullable; kinds come from the cleaned frame.
	storage.RegisterDDL("mssql", func(ctx context.Context, repo storage.Repository, table string, f *frame.Frame) error {
		sql, err := BuildCreateTableSQL(ddl.FromFrame(table, f, sqlType))
		if err != nil {
			return fmt.Errorf("mssql: build ddl: %w", err)
		}
		return repo.Exec(ctx, sql)
	})
}
