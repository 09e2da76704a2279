// Package webdriver adapts a W3C WebDriver session (Appium included) to the
// runtime capability contract. Commands travel over the driver's REST wire
// protocol, so every call here is an out-of-process round trip.
//
// Native-app sessions have no page script context: RunScript and Evaluate
// return interfaces.ErrScriptingUnsupported and captures use the driver's
// structural source dump (page HTML for web sessions, an XML hierarchy for
// native apps).
package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

// Option customizes a Session.
type Option func(*Session)

// WithTestType overrides the framework tag. Default is appium-driver.
func WithTestType(tt model.TestType) Option {
	return func(s *Session) { s.testType = tt }
}

// WithNativeContext marks the session as a native-app context with no
// script evaluation support.
func WithNativeContext() Option {
	return func(s *Session) { s.native = true }
}

// WithHTTPClient substitutes the HTTP client used for driver commands.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.client = hc }
}

// Session drives one WebDriver session.
type Session struct {
	serverURL string
	sessionID string
	client    *http.Client
	native    bool
	testType  model.TestType
	logger    interfaces.Logger
}

// Attach wraps an existing session created by the test suite itself; the
// usual path for Appium, where the suite owns the driver lifecycle.
func Attach(serverURL, sessionID string, logger interfaces.Logger, opts ...Option) (*Session, error) {
	if strings.TrimSpace(serverURL) == "" {
		return nil, fmt.Errorf("webdriver server url is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("webdriver session id is required")
	}

	s := &Session{
		serverURL: strings.TrimRight(serverURL, "/"),
		sessionID: sessionID,
		client:    &http.Client{Timeout: 30 * time.Second},
		testType:  model.TestTypeAppium,
		logger:    logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "webdriver"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("attached to webdriver session",
		interfaces.Field{Key: "session", Value: sessionID},
		interfaces.Field{Key: "native", Value: s.native})
	return s, nil
}

// NewSession creates a fresh session with the given W3C capabilities.
func NewSession(ctx context.Context, serverURL string, capabilities map[string]any, logger interfaces.Logger, opts ...Option) (*Session, error) {
	s, err := Attach(serverURL, "pending", logger, opts...)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"capabilities": map[string]any{"alwaysMatch": capabilities},
	}
	var out struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := s.command(ctx, http.MethodPost, "/session", payload, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if out.Value.SessionID == "" {
		return nil, fmt.Errorf("driver returned no session id")
	}
	s.sessionID = out.Value.SessionID
	return s, nil
}

// SessionID returns the wrapped driver session id.
func (s *Session) SessionID() string { return s.sessionID }

// RunScript executes script source synchronously in the session's page.
func (s *Session) RunScript(ctx context.Context, source string) error {
	if s.native {
		return interfaces.ErrScriptingUnsupported
	}
	var out struct {
		Value any `json:"value"`
	}
	payload := map[string]any{"script": source, "args": []any{}}
	if err := s.command(ctx, http.MethodPost, s.sessionPath("/execute/sync"), payload, &out); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

// Evaluate evaluates an expression via execute/sync and returns its value.
func (s *Session) Evaluate(ctx context.Context, expr string) (any, error) {
	if s.native {
		return nil, interfaces.ErrScriptingUnsupported
	}
	var out struct {
		Value any `json:"value"`
	}
	payload := map[string]any{"script": "return (" + expr + ");", "args": []any{}}
	if err := s.command(ctx, http.MethodPost, s.sessionPath("/execute/sync"), payload, &out); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return out.Value, nil
}

// URL reports the session's current URL. Native-app sessions report the
// driver's notion of the current activity/screen, which some drivers leave
// empty; that is passed through untouched.
func (s *Session) URL(ctx context.Context) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	if err := s.command(ctx, http.MethodGet, s.sessionPath("/url"), nil, &out); err != nil {
		return "", fmt.Errorf("read url: %w", err)
	}
	return out.Value, nil
}

// CaptureDOM prefers the injected serializer for web contexts and falls
// back to the driver's source dump, which is also the only path for native
// contexts.
func (s *Session) CaptureDOM(ctx context.Context) (string, error) {
	if !s.native {
		res, err := s.Evaluate(ctx, `(typeof window.SmartUIDOM === 'object' && typeof window.SmartUIDOM.serialize === 'function') ? window.SmartUIDOM.serialize() : null`)
		if err != nil {
			return "", err
		}
		switch v := res.(type) {
		case nil:
		case string:
			if v != "" {
				return v, nil
			}
		default:
			enc, merr := json.Marshal(v)
			if merr != nil {
				return "", fmt.Errorf("encode serialized dom: %w", merr)
			}
			return string(enc), nil
		}
	}

	var out struct {
		Value string `json:"value"`
	}
	if err := s.command(ctx, http.MethodGet, s.sessionPath("/source"), nil, &out); err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return out.Value, nil
}

func (s *Session) TestType() model.TestType { return s.testType }

// Close is a no-op for attached sessions; the owning suite deletes them.
func (s *Session) Close() error { return nil }

// DeleteSession ends the driver session. Only call it for sessions created
// through NewSession.
func (s *Session) DeleteSession(ctx context.Context) error {
	return s.command(ctx, http.MethodDelete, s.sessionPath(""), nil, nil)
}

func (s *Session) sessionPath(suffix string) string {
	return "/session/" + s.sessionID + suffix
}

func (s *Session) command(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := s.serverURL + path

	var bodyReader io.Reader
	if payload != nil {
		enc, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode command body: %w", err)
		}
		bodyReader = bytes.NewReader(enc)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("driver command %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read driver response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("driver command %s %s: status %d: %s", method, path, resp.StatusCode, driverErrorMessage(body))
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode driver response: %w", err)
		}
	}
	return nil
}

// driverErrorMessage pulls the W3C error message out of a failed command
// response body.
func driverErrorMessage(body []byte) string {
	var out struct {
		Value struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Value.Message != "" {
		return out.Value.Message
	}
	return strings.TrimSpace(string(body))
}
