package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"evadoption/internal/frame"
)

// CopyFn inserts one batch of rows aligned to columns.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// DefaultBatchSize is used when the pipeline does not set one.
const DefaultBatchSize = 5000

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn per batch. It returns the rows copyFn reported and the first
// error. Progress is logged after every successful batch.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batch size must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("storage: copyFn must not be nil")
	}
	var (
		total     int64
		batches   int
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		// copyFn must not retain rows; the backing array is reused.
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}
		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlush)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.Printf("batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches, rps, n, total,
			now.Sub(start).Truncate(time.Millisecond), sinceLast.Truncate(time.Millisecond))
		lastFlush = now
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: input closed, total_inserted=%d", total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadFrame streams every row of f into repo through LoadBatches.
func LoadFrame(ctx context.Context, repo Repository, f *frame.Frame, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, row := range f.Rows() {
			select {
			case in <- row:
			case <-ctx.Done():
				return
			}
		}
	}()
	return LoadBatches(ctx, f.Names(), in, batchSize, repo.CopyFrom)
}
