// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements interfaces.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...interfaces.Field) interfaces.Logger { return l }

// ─── ServerClient ──────────────────────────────────────────────────────

// DummyServerClient implements interfaces.ServerClient with scriptable
// responses. Calls records every method invocation in order.
type DummyServerClient struct {
	mu    sync.Mutex
	Calls []string

	CLIVersion    string
	HealthErr     error
	Serializer    string
	SerializerErr error
	Warnings      []string
	PostErr       error

	// Posted accumulates every request passed to PostSnapshot.
	Posted []*model.SnapshotRequest
}

func (d *DummyServerClient) CheckHealth(ctx context.Context) (*model.HealthResult, error) {
	d.recordCall("healthcheck")
	if d.HealthErr != nil {
		return nil, d.HealthErr
	}
	return &model.HealthResult{CLIVersion: d.CLIVersion}, nil
}

func (d *DummyServerClient) FetchSerializer(ctx context.Context) (string, error) {
	d.recordCall("domserializer")
	if d.SerializerErr != nil {
		return "", d.SerializerErr
	}
	if d.Serializer == "" {
		return "window.SmartUIDOM = { serialize: () => '<html/>' }", nil
	}
	return d.Serializer, nil
}

func (d *DummyServerClient) PostSnapshot(ctx context.Context, req *model.SnapshotRequest) (*model.UploadResult, error) {
	d.recordCall("snapshot")
	d.mu.Lock()
	d.Posted = append(d.Posted, req)
	d.mu.Unlock()
	if d.PostErr != nil {
		return nil, d.PostErr
	}
	return &model.UploadResult{Warnings: d.Warnings}, nil
}

func (d *DummyServerClient) recordCall(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, name)
}

// CallNames returns a copy of the recorded call order.
func (d *DummyServerClient) CallNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Calls...)
}

// ─── Runtime ───────────────────────────────────────────────────────────

// DummyRuntime implements interfaces.Runtime in memory. Evaluate answers
// the serializer entry-point check with EntryPointDefined.
type DummyRuntime struct {
	mu         sync.Mutex
	RanScripts []string

	EntryPointDefined bool
	DOM               string
	PageURL           string
	Type              model.TestType

	RunScriptErr error
	EvaluateErr  error
	CaptureErr   error
	URLErr       error
	ScriptingErr error // returned by both script methods when set
}

func (d *DummyRuntime) RunScript(ctx context.Context, source string) error {
	if d.ScriptingErr != nil {
		return d.ScriptingErr
	}
	if d.RunScriptErr != nil {
		return d.RunScriptErr
	}
	d.mu.Lock()
	d.RanScripts = append(d.RanScripts, source)
	d.mu.Unlock()
	// Executing a serializer defines the entry point.
	d.EntryPointDefined = true
	return nil
}

func (d *DummyRuntime) Evaluate(ctx context.Context, expr string) (any, error) {
	if d.ScriptingErr != nil {
		return nil, d.ScriptingErr
	}
	if d.EvaluateErr != nil {
		return nil, d.EvaluateErr
	}
	return d.EntryPointDefined, nil
}

func (d *DummyRuntime) URL(ctx context.Context) (string, error) {
	if d.URLErr != nil {
		return "", d.URLErr
	}
	if d.PageURL == "" {
		return "https://example.com/page", nil
	}
	return d.PageURL, nil
}

func (d *DummyRuntime) CaptureDOM(ctx context.Context) (string, error) {
	if d.CaptureErr != nil {
		return "", d.CaptureErr
	}
	if d.DOM == "" {
		return "<html><body>dummy</body></html>", nil
	}
	return d.DOM, nil
}

func (d *DummyRuntime) TestType() model.TestType {
	if d.Type == "" {
		return model.TestTypePuppeteer
	}
	return d.Type
}

func (d *DummyRuntime) Close() error { return nil }

// ─── Capturer ──────────────────────────────────────────────────────────

// DummyCapturer implements interfaces.Capturer. FailFirst attempts fail
// with Err before captures start succeeding.
type DummyCapturer struct {
	mu        sync.Mutex
	CallCount int
	FailFirst int
	Err       error
	Names     []string
}

func (d *DummyCapturer) Capture(ctx context.Context, rt interfaces.Runtime, name string, options map[string]any) (*model.CaptureResult, error) {
	d.mu.Lock()
	d.CallCount++
	count := d.CallCount
	d.Names = append(d.Names, name)
	d.mu.Unlock()

	if count <= d.FailFirst {
		err := d.Err
		if err == nil {
			err = fmt.Errorf("dummy capture failure %d", count)
		}
		return nil, err
	}
	return &model.CaptureResult{Name: name}, nil
}

// Count returns the number of Capture calls made so far.
func (d *DummyCapturer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CallCount
}
