package determinism

import (
	"context"
	"errors"
	"testing"
)

func TestSelfTestPassesWhenAllRunsAgree(t *testing.T) {
	report, err := SelfTest(context.Background(), 5, func(ctx context.Context, run int) (string, error) {
		return "same-hash", nil
	})
	if err != nil {
		t.Fatalf("SelfTest: %v", err)
	}
	if !report.AllEqual {
		t.Fatal("expected AllEqual = true")
	}
	if report.Runs != 5 {
		t.Fatalf("Runs = %d, want 5", report.Runs)
	}
}

func TestSelfTestFailsWhenOneRunDisagrees(t *testing.T) {
	_, err := SelfTest(context.Background(), 4, func(ctx context.Context, run int) (string, error) {
		if run == 2 {
			return "different-hash", nil
		}
		return "same-hash", nil
	})
	if err == nil {
		t.Fatal("expected a determinism-broken error")
	}
}

func TestSelfTestPropagatesRunError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := SelfTest(context.Background(), 3, func(ctx context.Context, run int) (string, error) {
		if run == 1 {
			return "", wantErr
		}
		return "same-hash", nil
	})
	if err == nil {
		t.Fatal("expected the underlying run error to propagate")
	}
}

func TestSelfTestRejectsZeroRuns(t *testing.T) {
	_, err := SelfTest(context.Background(), 0, func(ctx context.Context, run int) (string, error) {
		return "x", nil
	})
	if err == nil {
		t.Fatal("expected a validation error for n < 1")
	}
}
