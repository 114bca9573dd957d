// Package readiness blocks until the warehouse accepts connections.
package readiness

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/pkg/errors"
)

// ErrStoreUnavailable is returned when every attempt failed.
var ErrStoreUnavailable = errors.New("warehouse did not become available")

// Pinger is anything that can prove it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config bounds the wait.
type Config struct {
	MaxAttempts int
	Delay       time.Duration

	// Target is only used in log lines, e.g. "movieflix-postgres:5432".
	Target string
}

// Wait pings p until it answers, up to cfg.MaxAttempts times with a fixed
// cfg.Delay between attempts. There is no sleep after the last attempt.
func Wait(ctx context.Context, p Pinger, cfg Config, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	level.Info(logger).Log("msg", "waiting for warehouse", "target", cfg.Target, "max_attempts", attempts, "delay", cfg.Delay)

	b := backoff.New(ctx, backoff.Config{
		MinBackoff: cfg.Delay,
		MaxBackoff: cfg.Delay,
		MaxRetries: attempts,
	})
	var last error
	for b.Ongoing() {
		attempt := b.NumRetries() + 1
		if last = p.Ping(ctx); last == nil {
			level.Info(logger).Log("msg", "warehouse is ready", "attempt", attempt)
			return nil
		}
		level.Warn(logger).Log("msg", "warehouse not ready", "attempt", attempt, "max_attempts", attempts, "err", last)
		b.Wait()
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "waiting for warehouse")
	}
	return errors.Wrapf(ErrStoreUnavailable, "%s after %d attempts (last error: %v)", cfg.Target, attempts, last)
}
