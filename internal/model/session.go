package model

import "time"

// Session associates one automation driver handle with a current test label
// and an accumulating, ordered sequence of recorded events. It is created at
// tracker construction, mutated by SetCurrentTest and each tracked
// navigation, and flushed to a SessionStore on SaveResults.
type Session struct {
	ID          string
	TestType    TestType
	StartedAt   time.Time
	CurrentTest string

	Navigations []NavigationEvent
	Captures    []CaptureRecord
}

// NavigationEvent records one tracked navigation inside a session.
// Seq preserves insertion order even after persistence.
type NavigationEvent struct {
	Seq        int
	URL        string
	Label      string
	TestName   string
	OccurredAt time.Time
}

// CaptureRecord summarizes one snapshot attempt made through the tracker.
type CaptureRecord struct {
	Name      string
	TestName  string
	Attempts  int
	Succeeded bool
	Error     string
	CreatedAt time.Time
}
