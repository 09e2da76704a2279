// Package smartui is the public surface of the SmartUI snapshot capture
// client: one shared capture protocol implemented identically for every
// supported automation runtime, so the comparison server receives a
// consistent payload no matter which tool produced it.
package smartui

import (
	"context"
	"net/http"
	"os"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/runtime"
	"github.com/smartui-sdk/smartui-go/internal/serverclient"
	"github.com/smartui-sdk/smartui-go/internal/snapshot"
	"github.com/smartui-sdk/smartui-go/internal/tracker"
)

// Re-exported contracts so callers never import internal packages.
type (
	Config   = config.Config
	Logger   = interfaces.Logger
	Field    = interfaces.Field
	Runtime  = interfaces.Runtime
	TestType = model.TestType

	PreconditionError      = snapshot.PreconditionError
	ServerUnavailableError = snapshot.ServerUnavailableError
	ConnectionError        = serverclient.ConnectionError
	ServerError            = serverclient.ServerError
)

const (
	TestTypeCypress    = model.TestTypeCypress
	TestTypeJSCypress  = model.TestTypeJSCypress
	TestTypePuppeteer  = model.TestTypePuppeteer
	TestTypePlaywright = model.TestTypePlaywright
	TestTypeAppium     = model.TestTypeAppium
)

const (
	AddressPolicyDefault = config.AddressPolicyDefault
	AddressPolicyRequire = config.AddressPolicyRequire
)

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config { return config.DefaultConfig() }

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) { return config.LoadFile(path) }

// Option customizes a Client.
type Option func(*Client)

// WithLogger substitutes the logger. Default: a JSON-lines stdout logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient substitutes the HTTP client used for server calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithServerClient substitutes the whole server façade. Intended for tests.
func WithServerClient(sc interfaces.ServerClient) Option {
	return func(c *Client) { c.server = sc }
}

// Client binds a resolved server address to the capture orchestrator.
// Construct once per process; Snapshot calls are independent and safe to
// issue concurrently from parallel test workers.
type Client struct {
	cfg        *Config
	logger     Logger
	httpClient *http.Client
	server     interfaces.ServerClient
	orch       *snapshot.Orchestrator
}

// New resolves configuration (including the server address, once, per the
// configured address policy) and returns a ready Client.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewStdoutLogger("smartui")
	}

	if c.server == nil {
		sc, err := serverclient.New(cfg, c.logger, c.httpClient)
		if err != nil {
			return nil, err
		}
		c.server = sc
	}

	c.orch = snapshot.New(c.server, c.logger)
	return c, nil
}

// Snapshot captures one named snapshot from rt and uploads it. It fails
// before any network call on a missing name or nil runtime. In interactive
// (non-recorded) runs, detected via the configured InteractiveEnv variable,
// the capture is suppressed with a skip notice and nil is returned.
func (c *Client) Snapshot(ctx context.Context, rt Runtime, name string, options map[string]any) error {
	if c.cfg.InteractiveEnv != "" && os.Getenv(c.cfg.InteractiveEnv) != "" {
		c.logger.Info("snapshot skipped: interactive session",
			Field{Key: "snapshot", Value: name},
			Field{Key: "env", Value: c.cfg.InteractiveEnv})
		return nil
	}

	_, err := c.orch.Capture(ctx, rt, name, options)
	return err
}

// NewTracker builds a session tracker for rt using the client's retry
// configuration. store may be nil to skip persistence.
func (c *Client) NewTracker(rt Runtime, store interfaces.SessionStore) (*tracker.SessionTracker, error) {
	return tracker.New(rt, c.orch, store, tracker.Config{
		RetryAttempts:  c.cfg.RetryAttempts,
		AttemptTimeout: c.cfg.AttemptTimeout,
		SoftFail:       c.cfg.SoftFail,
	}, c.logger)
}

// NewSessionStore opens the SQLite-backed session store at dir.
func NewSessionStore(dir string, logger Logger) (interfaces.SessionStore, error) {
	return tracker.NewSQLiteStore(dir, logger)
}

// NewRuntime constructs the runtime backend named by cfg.Backend
// ("chromedp", "rod" or "webdriver") with cfg.BackendOptions applied.
func NewRuntime(cfg *Config, logger Logger) (Runtime, error) {
	runtime.RegisterDefaultBackends()
	return runtime.New(cfg, logger)
}

// Navigator is implemented by runtimes that can drive navigation
// themselves (the chromedp and rod shims). Attached WebDriver sessions
// navigate through their owning suite instead.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Navigate drives rt to url when the runtime supports it.
func Navigate(ctx context.Context, rt Runtime, url string) error {
	nav, ok := rt.(Navigator)
	if !ok {
		return &PreconditionError{Reason: "runtime does not support navigation"}
	}
	return nav.Navigate(ctx, url)
}
