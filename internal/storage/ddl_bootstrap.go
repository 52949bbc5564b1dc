package storage

import (
	"context"
	"fmt"
	"sync"

	"evadoption/internal/frame"
)

// DDLBootstrapper creates the destination table for f on repo if it does
// not exist yet. Each backend renders its own dialect.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, f *frame.Frame) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers the bootstrapper for a storage kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, f *frame.Frame) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no DDL bootstrapper registered for kind %q", kind)
	}
	return fn(ctx, repo, table, f)
}
