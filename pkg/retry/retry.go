// Package retry implements the transient-error retry policy: exponential
// backoff with jitter and bounded attempts, wrapping
// github.com/cenkalti/backoff/v4 behind a small Nexus-shaped API instead
// of exposing it raw.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// Config mirrors the original source's RetryConfig (nexus-core/src/retry.rs).
type Config struct {
	MaxAttempts       uint32
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterFactor      float64
}

// Default matches documented defaults: 3 attempts, 100ms initial,
// multiplier 2, capped at 5s, 10% jitter.
func Default() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.10,
	}
}

// Quick is a tighter preset for latency-sensitive retries (e.g. cache repopulation).
func Quick() Config {
	return Config{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2.0, JitterFactor: 0.1}
}

// Slow is used for replication reconnects (initial 1s, doubling, capped at 60s).
func Slow() Config {
	return Config{MaxAttempts: 0, InitialDelay: time.Second, MaxDelay: 60 * time.Second, BackoffMultiplier: 2.0, JitterFactor: 0.2}
}

// Stats tracks what a retry loop actually did, mirroring RetryStats in the
// original source.
type Stats struct {
	TotalAttempts     uint32
	SuccessfulRetries uint32
	FailedRetries     uint32
	TotalRetryTime    time.Duration
}

func (c Config) toBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.InitialDelay
	eb.MaxInterval = c.MaxDelay
	eb.Multiplier = c.BackoffMultiplier
	eb.RandomizationFactor = c.JitterFactor
	eb.MaxElapsedTime = 0 // bounded by attempt count instead, see Do
	var b backoff.BackOff = eb
	if c.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1))
	}
	return b
}

// Do runs operation, retrying on errors classified nexuserr.KindTransient
// until it succeeds, a non-transient error is returned, or attempts are
// exhausted. ctx cancellation aborts the loop immediately.
func Do(ctx context.Context, cfg Config, operation func() error) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	wrapped := func() error {
		stats.TotalAttempts++
		err := operation()
		if err == nil {
			return nil
		}
		if !nexuserr.Retryable(err) {
			return backoff.Permanent(err)
		}
		stats.FailedRetries++
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(cfg.toBackoff(), ctx))
	stats.TotalRetryTime = time.Since(start)
	if err == nil && stats.TotalAttempts > 1 {
		stats.SuccessfulRetries = 1
	}
	return stats, err
}
