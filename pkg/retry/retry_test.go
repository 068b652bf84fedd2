package retry

import (
	"context"
	stderr "errors"
	"testing"
	"time"

	"github.com/objectfs/mountfs/pkg/errors"
)

func fastConfig(attempts int) Config {
	config := DefaultConfig()
	config.MaxAttempts = attempts
	config.InitialDelay = time.Millisecond
	config.Jitter = false
	return config
}

func TestRetryer_Success(t *testing.T) {
	retryer := New(fastConfig(3))

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_RetryableError(t *testing.T) {
	retryer := New(fastConfig(3))

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.NewError(errors.ErrCodeConnectionTimeout, "connection timeout")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_NonRetryableError(t *testing.T) {
	retryer := New(fastConfig(3))

	attempts := 0
	testErr := errors.NewError(errors.ErrCodeFileNotFound, "file not found")

	err := retryer.Do(func() error {
		attempts++
		return testErr
	})

	if err != testErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry), got %d", attempts)
	}
}

func TestRetryer_MaxAttemptsExceeded(t *testing.T) {
	retryer := New(fastConfig(3))

	attempts := 0
	testErr := errors.NewError(errors.ErrCodeNetworkError, "network error")

	err := retryer.Do(func() error {
		attempts++
		return testErr
	})

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if !errors.HasCode(err, errors.ErrCodeRetryExhausted) {
		t.Errorf("Expected RETRY_EXHAUSTED, got %v", err)
	}
	if !stderr.Is(err, testErr) {
		t.Error("Exhausted error should wrap the last error")
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	config := fastConfig(10)
	config.InitialDelay = 50 * time.Millisecond
	retryer := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := retryer.DoWithContext(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.NewError(errors.ErrCodeConnectionFailed, "connection failed")
	})

	if !errors.HasCode(err, errors.ErrCodeOperationCanceled) {
		t.Errorf("Expected OPERATION_CANCELED, got %v", err)
	}
	if !stderr.Is(err, context.Canceled) {
		t.Error("Expected error to wrap context.Canceled")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_ContextErrorsAreFinal(t *testing.T) {
	retryer := New(fastConfig(5).withRetryIf(func(error) bool { return true }))

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return context.DeadlineExceeded
	})

	if !stderr.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_RetryIf(t *testing.T) {
	transient := stderr.New("slow down")
	retryer := New(fastConfig(3)).WithRetryIf(func(err error) bool {
		return stderr.Is(err, transient)
	})

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		if attempts == 1 {
			return transient
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}

	attempts = 0
	plain := stderr.New("permanent")
	if err := retryer.Do(func() error { attempts++; return plain }); err != plain {
		t.Errorf("Expected plain error unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for permanent error, got %d", attempts)
	}
}

func TestRetryer_OnRetry(t *testing.T) {
	var delays []time.Duration
	retryer := New(fastConfig(3)).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	})

	_ = retryer.Do(func() error {
		return errors.NewError(errors.ErrCodeNetworkError, "network error")
	})

	if len(delays) != 2 {
		t.Fatalf("Expected 2 OnRetry calls, got %d", len(delays))
	}
	if delays[1] != 2*delays[0] {
		t.Errorf("Expected exponential backoff, got %v", delays)
	}
}

func TestCalculateDelay_Capped(t *testing.T) {
	config := fastConfig(10)
	config.InitialDelay = time.Second
	config.MaxDelay = 3 * time.Second
	retryer := New(config)

	if got := retryer.calculateDelay(5); got != 3*time.Second {
		t.Errorf("Expected delay capped at 3s, got %v", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{})
	cfg := r.Config()
	if cfg.MaxAttempts != 3 || cfg.Multiplier != 2.0 || cfg.InitialDelay <= 0 || cfg.MaxDelay <= 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if r.WithMaxAttempts(7).Config().MaxAttempts != 7 {
		t.Error("WithMaxAttempts not applied")
	}
}

func (c Config) withRetryIf(fn func(error) bool) Config {
	c.RetryIf = fn
	return c
}
