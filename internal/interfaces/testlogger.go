package interfaces

import "fmt"

// TestLogger prints log lines to stdout for tests that want a real logger
// without asserting on its output. Debug and Info stay quiet unless verbose
// is set; warnings and errors always print.
type TestLogger struct {
	verbose bool
}

// NewTestLogger creates a TestLogger.
func NewTestLogger(verbose bool) *TestLogger {
	return &TestLogger{verbose: verbose}
}

func (tl *TestLogger) Debug(msg string, fields ...Field) { tl.print("debug", msg, fields) }
func (tl *TestLogger) Info(msg string, fields ...Field)  { tl.print("info", msg, fields) }
func (tl *TestLogger) Warn(msg string, fields ...Field)  { tl.print("warn", msg, fields) }
func (tl *TestLogger) Error(msg string, fields ...Field) { tl.print("error", msg, fields) }

func (tl *TestLogger) With(fields ...Field) Logger { return tl }

func (tl *TestLogger) print(level, msg string, fields []Field) {
	if !tl.verbose && (level == "debug" || level == "info") {
		return
	}
	if len(fields) == 0 {
		fmt.Printf("[%s] %s\n", level, msg)
		return
	}
	fmt.Printf("[%s] %s %v\n", level, msg, fields)
}
