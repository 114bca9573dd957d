package storage

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows (aligned to columns) and return the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the number of rows
// reported by copyFn and the first error encountered.
//
// Cancellation returns (total, ctx.Err()). Progress is logged at debug level
// on each successful flush.
func LoadBatches(
	ctx context.Context,
	logger log.Logger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, errors.New("copyFn must not be nil")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// Reuse the backing array; copyFn must not retain rows.
		batch = batch[:0]

		if err != nil {
			level.Error(logger).Log("msg", "batch copy failed", "batch", batches+1, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		level.Debug(logger).Log(
			"msg", "batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
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

// Stream feeds rows to LoadBatches from a producer goroutine through a
// bounded channel. The producer stops as soon as the consumer fails.
func Stream(
	ctx context.Context,
	logger log.Logger,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batchSize must be > 0")
	}
	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		n, err := LoadBatches(gctx, logger, columns, ch, batchSize, copyFn)
		total = n
		return err
	})

	err := g.Wait()
	return total, err
}

// BatchSize returns n, or def when n is not positive.
func BatchSize(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// DefaultBatchSize is used when Config.BatchSize is unset.
const DefaultBatchSize = 5000
