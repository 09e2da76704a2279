package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartui-sdk/smartui-go/internal/snapshot"
	"github.com/smartui-sdk/smartui-go/internal/testutil"
	"github.com/smartui-sdk/smartui-go/internal/tracker"
)

func newTracker(t *testing.T, orch *testutil.DummyCapturer, cfg tracker.Config) *tracker.SessionTracker {
	t.Helper()
	st, err := tracker.New(&testutil.DummyRuntime{}, orch, nil, cfg, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func TestSnapshot_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	orch := &testutil.DummyCapturer{}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 3})

	if err := st.Snapshot(context.Background(), "Home", nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if orch.Count() != 1 {
		t.Errorf("expected 1 attempt, got %d", orch.Count())
	}
}

func TestSnapshot_RetriesUpToBudget(t *testing.T) {
	t.Parallel()
	orch := &testutil.DummyCapturer{FailFirst: 2}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 3})

	if err := st.Snapshot(context.Background(), "Home", nil); err != nil {
		t.Fatalf("expected success within budget, got %v", err)
	}
	if orch.Count() != 3 {
		t.Errorf("expected 3 attempts, got %d", orch.Count())
	}
}

func TestSnapshot_FinalErrorSurfacesAfterBudget(t *testing.T) {
	t.Parallel()
	finalErr := errors.New("still broken")
	orch := &testutil.DummyCapturer{FailFirst: 10, Err: finalErr}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 2})

	err := st.Snapshot(context.Background(), "Home", nil)
	if !errors.Is(err, finalErr) {
		t.Fatalf("expected final attempt's error, got %v", err)
	}
	if orch.Count() != 2 {
		t.Errorf("expected 2 attempts, got %d", orch.Count())
	}
}

func TestSnapshot_PreconditionErrorIsNeverRetried(t *testing.T) {
	t.Parallel()
	orch := &testutil.DummyCapturer{FailFirst: 10, Err: &snapshot.PreconditionError{Reason: "bad name"}}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 5})

	err := st.Snapshot(context.Background(), "", nil)
	var pre *snapshot.PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected *PreconditionError, got %v", err)
	}
	if orch.Count() != 1 {
		t.Errorf("expected a single attempt, got %d", orch.Count())
	}
}

func TestSnapshot_SoftFailSwallowsFinalError(t *testing.T) {
	t.Parallel()
	orch := &testutil.DummyCapturer{FailFirst: 10}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 2, SoftFail: true})

	if err := st.Snapshot(context.Background(), "Home", nil); err != nil {
		t.Fatalf("expected SoftFail to swallow the error, got %v", err)
	}
}

func TestSnapshot_CanceledContextStopsRetrying(t *testing.T) {
	t.Parallel()
	orch := &testutil.DummyCapturer{FailFirst: 10}
	st := newTracker(t, orch, tracker.Config{RetryAttempts: 5, AttemptTimeout: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := st.Snapshot(ctx, "Home", nil); err == nil {
		t.Fatal("expected error with canceled context")
	}
	if orch.Count() != 1 {
		t.Errorf("expected no retries after cancellation, got %d attempts", orch.Count())
	}
}

func TestTrackNavigation_OrderedEvents(t *testing.T) {
	t.Parallel()
	st := newTracker(t, &testutil.DummyCapturer{}, tracker.Config{})

	st.SetCurrentTest("login spec")
	st.TrackNavigation("https://example.com/a", "open a")
	st.TrackNavigation("https://example.com/b", "open b")

	if st.SessionID() == "" {
		t.Error("expected a session id")
	}
}

func TestDo_RecordsNavigationAfterAction(t *testing.T) {
	t.Parallel()
	ran := false
	st := newTracker(t, &testutil.DummyCapturer{}, tracker.Config{})

	err := st.Do(context.Background(), "tap login", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran {
		t.Error("expected action to run")
	}
}

func TestDo_ActionErrorPropagates(t *testing.T) {
	t.Parallel()
	st := newTracker(t, &testutil.DummyCapturer{}, tracker.Config{})
	actionErr := errors.New("element not found")

	err := st.Do(context.Background(), "tap login", func(ctx context.Context) error {
		return actionErr
	})
	if !errors.Is(err, actionErr) {
		t.Fatalf("expected action error, got %v", err)
	}
}
