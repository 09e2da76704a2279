package serverclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/serverclient"
	"github.com/smartui-sdk/smartui-go/internal/testutil"
)

func newClient(t *testing.T, baseURL string) *serverclient.Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ServerAddress = baseURL

	client, err := serverclient.New(cfg, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestCheckHealth_ReturnsCLIVersion(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected /healthcheck, got %s", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"cliVersion":"1.2.3"}}`)
	}))
	defer ts.Close()

	res, err := newClient(t, ts.URL).CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if res.CLIVersion != "1.2.3" {
		t.Errorf("expected cliVersion 1.2.3, got %q", res.CLIVersion)
	}
}

func TestCheckHealth_MissingVersionIsNotAnError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	}))
	defer ts.Close()

	res, err := newClient(t, ts.URL).CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	// Liveness interpretation belongs to the orchestrator, not the client.
	if res.CLIVersion != "" {
		t.Errorf("expected empty cliVersion, got %q", res.CLIVersion)
	}
}

func TestFetchSerializer_ReturnsSource(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domserializer" {
			t.Errorf("expected /domserializer, got %s", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"dom":"window.SmartUIDOM={}"}}`)
	}))
	defer ts.Close()

	src, err := newClient(t, ts.URL).FetchSerializer(context.Background())
	if err != nil {
		t.Fatalf("FetchSerializer: %v", err)
	}
	if src != "window.SmartUIDOM={}" {
		t.Errorf("unexpected serializer source %q", src)
	}
}

func TestPostSnapshot_SendsExpectedBody(t *testing.T) {
	t.Parallel()
	var gotContentType string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"data":{"warnings":["w1"]}}`)
	}))
	defer ts.Close()

	req := &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:     "<html/>",
			URL:     "https://example.com",
			Name:    "Login Page",
			Options: map[string]any{"fullPage": true},
		},
		TestType: model.TestTypePlaywright,
	}
	res, err := newClient(t, ts.URL).PostSnapshot(context.Background(), req)
	if err != nil {
		t.Fatalf("PostSnapshot: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("expected application/json, got %q", gotContentType)
	}
	var decoded map[string]any
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	snap, ok := decoded["snapshot"].(map[string]any)
	if !ok {
		t.Fatalf("body missing snapshot object: %s", gotBody)
	}
	if snap["name"] != "Login Page" {
		t.Errorf("expected snapshot.name 'Login Page', got %v", snap["name"])
	}
	if decoded["testType"] != string(model.TestTypePlaywright) {
		t.Errorf("expected testType %q, got %v", model.TestTypePlaywright, decoded["testType"])
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "w1" {
		t.Errorf("expected warnings [w1], got %v", res.Warnings)
	}
}

func TestPostSnapshot_ServerErrorUsesBodyMessage(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"storage exploded"}}`)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL).PostSnapshot(context.Background(), &model.SnapshotRequest{
		Snapshot: &model.Snapshot{Name: "n", DOM: "<html/>"},
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var serverErr *serverclient.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if serverErr.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", serverErr.StatusCode)
	}
	if serverErr.Message != "storage exploded" {
		t.Errorf("expected body-derived message, got %q", serverErr.Message)
	}
}

func TestPostSnapshot_ServerErrorWithoutBodyMessage(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL).PostSnapshot(context.Background(), &model.SnapshotRequest{
		Snapshot: &model.Snapshot{Name: "n", DOM: "<html/>"},
	})

	var serverErr *serverclient.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if !strings.Contains(serverErr.Message, "502") {
		t.Errorf("expected status-derived message, got %q", serverErr.Message)
	}
}

func TestCheckHealth_TransportFailureIsConnectionError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // nothing is listening anymore

	_, err := newClient(t, ts.URL).CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}

	var connErr *serverclient.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
	}
}

func TestNew_RequirePolicyFailsWhenUnset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AddressPolicy = config.AddressPolicyRequire
	t.Setenv(config.EnvServerAddress, "")

	_, err := serverclient.New(cfg, &testutil.DummyLogger{}, nil)
	if !errors.Is(err, config.ErrServerAddressUnset) {
		t.Fatalf("expected ErrServerAddressUnset, got %v", err)
	}
}
