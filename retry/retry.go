package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dieter"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and for how long an operation is retried.
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// DefaultPolicy matches the RetryConfig defaults.
func DefaultPolicy() Policy {
	return Policy{MaxTries: 3, InitialInterval: 500 * time.Millisecond, MaxElapsed: 10 * time.Second}
}

func FromConfig(cfg dieter.RetryConfig) Policy {
	return Policy{
		MaxTries:        cfg.MaxTries,
		InitialInterval: cfg.InitialInterval,
		MaxElapsed:      cfg.MaxElapsed,
	}
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	return b
}

func (p Policy) options(name string) []backoff.RetryOption {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("RETRY: Attempt failed", "operation", name, "error", err, "next_in", next)
		}),
	}
	if p.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxTries))
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	return opts
}

// Do runs op until it succeeds, returns a Permanent error, the policy is
// exhausted or ctx is done.
func Do[T any](ctx context.Context, p Policy, name string, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op, p.options(name)...)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perr *backoff.PermanentError
	return errors.As(err, &perr)
}
