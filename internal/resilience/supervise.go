// Package resilience keeps background tasks running.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BackoffConfig holds configuration for restart backoff
type BackoffConfig struct {
	MaxAttempts int           // Consecutive failures before giving up; 0 means never
	Backoff     time.Duration // Wait before the first restart
	Multiplier  float64       // Backoff multiplier for exponential backoff
	MaxBackoff  time.Duration // Maximum backoff duration
	ResetAfter  time.Duration // A run this long clears the failure count
}

// DefaultBackoffConfig returns a default restart configuration
func DefaultBackoffConfig() *BackoffConfig {
	return &BackoffConfig{
		MaxAttempts: 5,
		Backoff:     1 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
		ResetAfter:  time.Minute,
	}
}

// Next returns the backoff before restart number attempt (zero based).
func (c *BackoffConfig) Next(attempt int) time.Duration {
	backoff := c.Backoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return backoff
}

// TaskFunc runs until ctx is done or it fails.
type TaskFunc func(ctx context.Context) error

// Supervise runs fn and restarts it with exponential backoff whenever it
// returns an error. It returns nil once ctx is done or fn returns nil, and
// an error after MaxAttempts consecutive failures.
func Supervise(ctx context.Context, name string, fn TaskFunc, config *BackoffConfig, logger zerolog.Logger) error {
	if config == nil {
		config = DefaultBackoffConfig()
	}

	failures := 0
	for {
		start := time.Now()
		err := fn(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}

		if config.ResetAfter > 0 && time.Since(start) >= config.ResetAfter {
			failures = 0
		}
		failures++
		if config.MaxAttempts > 0 && failures >= config.MaxAttempts {
			return fmt.Errorf("%s failed %d times: %w", name, failures, err)
		}

		backoff := config.Next(failures - 1)
		logger.Warn().
			Err(err).
			Str("task", name).
			Int("failures", failures).
			Dur("backoff", backoff).
			Msg("Task failed, restarting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}
