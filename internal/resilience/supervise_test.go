package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastConfig(maxAttempts int) *BackoffConfig {
	return &BackoffConfig{
		MaxAttempts: maxAttempts,
		Backoff:     time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  4 * time.Millisecond,
	}
}

func TestSupervise_CleanExit(t *testing.T) {
	runs := 0
	err := Supervise(context.Background(), "task", func(context.Context) error {
		runs++
		return nil
	}, fastConfig(3), zerolog.Nop())

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if runs != 1 {
		t.Errorf("Expected 1 run, got %d", runs)
	}
}

func TestSupervise_RestartsAfterFailure(t *testing.T) {
	runs := 0
	err := Supervise(context.Background(), "task", func(context.Context) error {
		runs++
		if runs < 3 {
			return errors.New("watcher closed")
		}
		return nil
	}, fastConfig(5), zerolog.Nop())

	if err != nil {
		t.Errorf("Expected no error after restarts, got %v", err)
	}
	if runs != 3 {
		t.Errorf("Expected 3 runs, got %d", runs)
	}
}

func TestSupervise_GivesUp(t *testing.T) {
	cause := errors.New("persistent error")
	runs := 0
	err := Supervise(context.Background(), "task", func(context.Context) error {
		runs++
		return cause
	}, fastConfig(2), zerolog.Nop())

	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if runs != 2 {
		t.Errorf("Expected 2 runs, got %d", runs)
	}
}

func TestSupervise_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(0)
	cfg.Backoff = time.Hour
	cfg.MaxBackoff = time.Hour

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, "task", func(context.Context) error {
			return errors.New("fail")
		}, cfg, zerolog.Nop())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Supervise did not return after cancel")
	}
}

func TestBackoffConfig_Next(t *testing.T) {
	cfg := &BackoffConfig{Backoff: 100 * time.Millisecond, Multiplier: 2.0, MaxBackoff: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := cfg.Next(tt.attempt); got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
