package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutorPassesThroughSuccess(t *testing.T) {
	exec := NewExecutor(DefaultConfig())
	calls := 0

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestExecutorDoesNotRetry(t *testing.T) {
	exec := NewExecutor(DefaultConfig())
	calls := 0
	boom := errors.New("boom")

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestExecutorOpensAfterFailureRatio(t *testing.T) {
	exec := NewExecutor(Config{
		MinRequests:  3,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "op", func(context.Context) error {
			return boom
		}, nil)
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("callback must not run while the breaker is open")
		return nil
	}, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestExecutorIgnoresUnrecordedFailures(t *testing.T) {
	exec := NewExecutor(Config{
		MinRequests:  2,
		FailureRatio: 0.1,
		OpenTimeout:  time.Minute,
	})
	benign := errors.New("bad request")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: false}
	}

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "op", func(context.Context) error {
			return benign
		}, classifier)
	}

	ran := false
	_ = exec.Execute(context.Background(), "op", func(context.Context) error {
		ran = true
		return nil
	}, classifier)
	if !ran {
		t.Fatalf("breaker opened on unrecorded failures")
	}
}

func TestExecutorRespectsCancelledContext(t *testing.T) {
	exec := NewExecutor(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "op", func(context.Context) error {
		t.Fatalf("callback must not run for a cancelled context")
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
