package interfaces

import (
	"context"
	"errors"

	"github.com/smartui-sdk/smartui-go/internal/model"
)

// ErrScriptingUnsupported is returned by runtimes whose current context
// cannot execute page scripts (native-app WebDriver sessions). Callers that
// inject scripts treat it as "skip", since such runtimes capture via a
// structural source dump instead.
var ErrScriptingUnsupported = errors.New("runtime does not support script execution")

// Runtime is the minimal capability contract an automation framework shim
// must satisfy for a snapshot capture. Implementations normalize
// framework-specific quirks (method names, async execution contexts) so the
// orchestrator never sees them.
type Runtime interface {
	// RunScript executes arbitrary script source in the runtime's page
	// evaluation context. The completion value is discarded.
	RunScript(ctx context.Context, source string) error

	// Evaluate evaluates a single expression in the page context and
	// returns its completion value.
	Evaluate(ctx context.Context, expr string) (any, error)

	// URL returns the current page or screen URL.
	URL(ctx context.Context) (string, error)

	// CaptureDOM is the capture primitive: it returns the serialized DOM
	// for the current page, preferring an injected serializer entry point
	// and falling back to the runtime's native dump.
	CaptureDOM(ctx context.Context) (string, error)

	// TestType identifies the originating framework for server attribution.
	TestType() model.TestType

	// Close releases the underlying page/session handle.
	Close() error
}

// ServerClient is the typed façade over the SmartUI comparison server.
// One HTTP request per call, no automatic retries; retrying is a caller
// concern.
type ServerClient interface {
	// CheckHealth probes GET /healthcheck.
	CheckHealth(ctx context.Context) (*model.HealthResult, error)

	// FetchSerializer downloads the injectable DOM serializer source.
	FetchSerializer(ctx context.Context) (string, error)

	// PostSnapshot uploads one captured snapshot.
	PostSnapshot(ctx context.Context, req *model.SnapshotRequest) (*model.UploadResult, error)
}

// Capturer runs one full snapshot capture against a runtime. Implemented by
// the snapshot orchestrator; faked in tracker tests.
type Capturer interface {
	Capture(ctx context.Context, rt Runtime, name string, options map[string]any) (*model.CaptureResult, error)
}

// SessionStore persists a tracked automation session and its recorded
// events. Implementations should be safe for concurrent use.
type SessionStore interface {
	// SaveSession writes the session, its navigation events and capture
	// records in one transaction.
	SaveSession(ctx context.Context, s *model.Session) error

	// Close releases resources used by the store.
	Close() error
}
