// Package datasource defines where a pipeline's raw table bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream for one input table. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
