// Package tracker layers session bookkeeping and a bounded retry loop above
// the capture orchestrator, the way mobile (Appium-style) suites consume
// the protocol: one tracker per driver session, navigation events recorded
// as the suite moves around, results flushed at the end of the run.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/snapshot"
)

// Config controls the tracker's retry wrapper.
type Config struct {
	// RetryAttempts is the total attempt budget per snapshot. Values
	// below 1 mean a single attempt.
	RetryAttempts int

	// AttemptTimeout bounds each individual attempt. Zero means no
	// per-attempt deadline beyond the caller's context.
	AttemptTimeout time.Duration

	// SoftFail logs a finally-failed snapshot at error level and returns
	// nil instead of propagating. Errors propagate by default.
	SoftFail bool
}

// SessionTracker associates one runtime with a session record and wraps
// captures in a bounded retry loop. Safe for concurrent use by parallel
// subtests sharing one driver session.
type SessionTracker struct {
	rt     interfaces.Runtime
	orch   interfaces.Capturer
	store  interfaces.SessionStore
	cfg    Config
	logger interfaces.Logger

	mu      sync.Mutex
	session *model.Session
	nextSeq int
}

// New creates a tracker for one runtime/session. store may be nil, in which
// case SaveResults is a logged no-op.
func New(rt interfaces.Runtime, orch interfaces.Capturer, store interfaces.SessionStore, cfg Config, logger interfaces.Logger) (*SessionTracker, error) {
	if rt == nil {
		return nil, errors.New("tracker: nil runtime")
	}
	if orch == nil {
		return nil, errors.New("tracker: nil capturer")
	}

	return &SessionTracker{
		rt:     rt,
		orch:   orch,
		store:  store,
		cfg:    cfg,
		logger: logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "tracker"}),
		session: &model.Session{
			ID:        uuid.New().String(),
			TestType:  rt.TestType(),
			StartedAt: time.Now().UTC(),
		},
	}, nil
}

// SessionID returns the tracker's session identity.
func (st *SessionTracker) SessionID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session.ID
}

// SetCurrentTest labels subsequent events with the running test's name.
func (st *SessionTracker) SetCurrentTest(name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.CurrentTest = name
}

// TrackNavigation appends a navigation event to the session's ordered log.
func (st *SessionTracker) TrackNavigation(url, label string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextSeq++
	st.session.Navigations = append(st.session.Navigations, model.NavigationEvent{
		Seq:        st.nextSeq,
		URL:        url,
		Label:      label,
		TestName:   st.session.CurrentTest,
		OccurredAt: time.Now().UTC(),
	})
}

// Do runs fn and then records the runtime's current URL as a navigation
// event labeled with label. Pure ergonomics above the protocol: "tap a
// button and track where we landed".
func (st *SessionTracker) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	url, err := st.rt.URL(ctx)
	if err != nil {
		st.logger.Warn("could not read url after tracked action",
			interfaces.Field{Key: "label", Value: label},
			interfaces.Field{Key: "error", Value: err.Error()})
		url = ""
	}
	st.TrackNavigation(url, label)
	return nil
}

// Snapshot captures name through the orchestrator with the configured
// attempt budget. Precondition failures are terminal immediately: retrying
// cannot change a fixed input's validity. Otherwise only the final
// attempt's error surfaces (or is swallowed under SoftFail).
func (st *SessionTracker) Snapshot(ctx context.Context, name string, options map[string]any) error {
	attempts := st.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	used := 0
	for i := 1; i <= attempts; i++ {
		used = i
		_, err := st.capture(ctx, name, options)
		if err == nil {
			st.record(name, used, true, "")
			return nil
		}
		lastErr = err

		var pre *snapshot.PreconditionError
		if errors.As(err, &pre) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if i < attempts {
			st.logger.Warn("snapshot attempt failed, retrying",
				interfaces.Field{Key: "snapshot", Value: name},
				interfaces.Field{Key: "attempt", Value: i},
				interfaces.Field{Key: "error", Value: err.Error()})
		}
	}

	st.record(name, used, false, lastErr.Error())
	if st.cfg.SoftFail {
		st.logger.Error("snapshot failed",
			interfaces.Field{Key: "snapshot", Value: name},
			interfaces.Field{Key: "attempts", Value: used},
			interfaces.Field{Key: "error", Value: lastErr.Error()})
		return nil
	}
	return lastErr
}

func (st *SessionTracker) capture(ctx context.Context, name string, options map[string]any) (*model.CaptureResult, error) {
	if st.cfg.AttemptTimeout > 0 {
		actx, cancel := context.WithTimeout(ctx, st.cfg.AttemptTimeout)
		defer cancel()
		return st.orch.Capture(actx, st.rt, name, options)
	}
	return st.orch.Capture(ctx, st.rt, name, options)
}

func (st *SessionTracker) record(name string, attempts int, ok bool, errMsg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.Captures = append(st.session.Captures, model.CaptureRecord{
		Name:      name,
		TestName:  st.session.CurrentTest,
		Attempts:  attempts,
		Succeeded: ok,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	})
}

// SaveResults flushes the session and its accumulated events to the store.
func (st *SessionTracker) SaveResults(ctx context.Context) error {
	if st.store == nil {
		st.logger.Debug("no session store configured; results not persisted")
		return nil
	}

	st.mu.Lock()
	snapshotted := cloneSession(st.session)
	st.mu.Unlock()

	if err := st.store.SaveSession(ctx, snapshotted); err != nil {
		return fmt.Errorf("saving session results: %w", err)
	}
	st.logger.Info("session results saved",
		interfaces.Field{Key: "session", Value: snapshotted.ID})
	return nil
}

func cloneSession(s *model.Session) *model.Session {
	out := *s
	out.Navigations = append([]model.NavigationEvent(nil), s.Navigations...)
	out.Captures = append([]model.CaptureRecord(nil), s.Captures...)
	return &out
}
