package interfaces

// Logger is the logging contract every package in this module accepts. It
// stays intentionally small: test suites embedding the SDK already have a
// logger, and adapting one to four leveled methods plus With is cheaper
// than adapting the SDK to theirs.
type Logger interface {
	// Debug logs capture internals (state transitions, request traces).
	Debug(msg string, fields ...Field)

	// Info logs capture milestones, one per completed snapshot.
	Info(msg string, fields ...Field)

	// Warn logs server-issued warnings and recoverable faults.
	Warn(msg string, fields ...Field)

	// Error logs failures that end a capture or a session.
	Error(msg string, fields ...Field)

	// With returns a child logger carrying persistent fields.
	With(fields ...Field) Logger
}

// Field attaches one structured key/value pair to a log entry.
type Field struct {
	Key   string
	Value any
}
