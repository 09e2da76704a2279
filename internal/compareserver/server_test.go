package compareserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartui-sdk/smartui-go/internal/compareserver"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := compareserver.NewServer(compareserver.Config{
		StoragePath:       t.TempDir(),
		CLIVersion:        "0.1.0-test",
		ChangeWarnPercent: 25,
		Logger:            &testutil.DummyLogger{},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func postSnapshot(t *testing.T, ts *httptest.Server, req *model.SnapshotRequest) (*http.Response, model.UploadEnvelope) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL+"/snapshot", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /snapshot: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var env model.UploadEnvelope
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode upload envelope: %v", err)
		}
	}
	return resp, env
}

func TestHealthcheck_ReportsVersion(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("GET /healthcheck: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var env model.HealthEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.CLIVersion != "0.1.0-test" {
		t.Errorf("expected cliVersion 0.1.0-test, got %q", env.Data.CLIVersion)
	}
}

func TestSerializer_DefinesEntryPoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/domserializer")
	if err != nil {
		t.Fatalf("GET /domserializer: %v", err)
	}
	defer resp.Body.Close()

	var env model.SerializerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(env.Data.DOM, "SmartUIDOM") {
		t.Error("serializer source should define the SmartUIDOM entry point")
	}
	if !strings.Contains(env.Data.DOM, "serialize") {
		t.Error("serializer source should expose a serialize function")
	}
}

func TestSnapshot_FirstUploadHasNoDiffWarnings(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, env := postSnapshot(t, ts, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:  "<html><body><h1>Hello</h1></body></html>",
			URL:  "https://example.com",
			Name: "Home",
		},
		TestType: model.TestTypePlaywright,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(env.Data.Warnings) != 0 {
		t.Errorf("expected no warnings on first upload, got %v", env.Data.Warnings)
	}
}

func TestSnapshot_ChangedDOMWarns(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	first := &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:  "<html><body><h1>Hello</h1></body></html>",
			URL:  "https://example.com",
			Name: "Home",
		},
		TestType: model.TestTypePlaywright,
	}
	if resp, _ := postSnapshot(t, ts, first); resp.StatusCode != http.StatusOK {
		t.Fatalf("seeding upload failed with %d", resp.StatusCode)
	}

	second := &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:  "<html><body><h1>Completely different content everywhere</h1><p>with much more text</p></body></html>",
			URL:  "https://example.com",
			Name: "Home",
		},
		TestType: model.TestTypePlaywright,
	}
	resp, env := postSnapshot(t, ts, second)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(env.Data.Warnings) == 0 {
		t.Fatal("expected a change warning for a heavily modified DOM")
	}
	if !strings.Contains(env.Data.Warnings[0], "DOM changed") {
		t.Errorf("unexpected warning: %q", env.Data.Warnings[0])
	}
}

func TestSnapshot_URLChangeWarns(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	dom := "<html><body><h1>Stable</h1></body></html>"
	if resp, _ := postSnapshot(t, ts, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{DOM: dom, URL: "https://example.com/a", Name: "Page"},
		TestType: model.TestTypeCypress,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("seeding upload failed with %d", resp.StatusCode)
	}

	_, env := postSnapshot(t, ts, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{DOM: dom, URL: "https://example.com/b", Name: "Page"},
		TestType: model.TestTypeCypress,
	})

	found := false
	for _, w := range env.Data.Warnings {
		if strings.Contains(w, "url changed") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a url-changed warning, got %v", env.Data.Warnings)
	}
}

func TestSnapshot_MissingTestTypeWarns(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	_, env := postSnapshot(t, ts, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:  "<html><body>x</body></html>",
			URL:  "https://example.com",
			Name: "Untyped",
		},
	})
	if len(env.Data.Warnings) != 1 || !strings.Contains(env.Data.Warnings[0], "missing testType") {
		t.Errorf("expected missing-testType warning, got %v", env.Data.Warnings)
	}
}

func TestSnapshot_RejectsBadPayloads(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"no snapshot", `{"testType":"cypress-driver"}`},
		{"blank name", `{"snapshot":{"dom":"<html/>","name":"   "}}`},
		{"missing dom", `{"snapshot":{"name":"Home"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Post(ts.URL+"/snapshot", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("POST /snapshot: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var env model.ErrorEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if env.Error == nil || env.Error.Message == "" {
				t.Error("expected an error message in the envelope")
			}
		})
	}
}

func TestBuildEvents_ConcurrentUploadsOneSubscriber(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/builds"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Give the handler a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	const uploads = 32
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := &model.SnapshotRequest{
				Snapshot: &model.Snapshot{
					DOM:  fmt.Sprintf("<html><body>upload %d</body></html>", i),
					URL:  "https://example.com",
					Name: fmt.Sprintf("Concurrent-%d", i),
				},
				TestType: model.TestTypePlaywright,
			}
			body, err := json.Marshal(req)
			if err != nil {
				t.Errorf("marshal request %d: %v", i, err)
				return
			}
			resp, err := http.Post(ts.URL+"/snapshot", "application/json", bytes.NewReader(body))
			if err != nil {
				t.Errorf("POST /snapshot %d: %v", i, err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("upload %d: status %d", i, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()

	// Every frame must arrive intact; uploads fit within the subscriber
	// queue, so none may be dropped either.
	seen := make(map[string]bool, uploads)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for i := 0; i < uploads; i++ {
		var ev compareserver.BuildEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("reading event %d: %v", i, err)
		}
		if ev.SnapshotID == "" || !strings.HasPrefix(ev.Name, "Concurrent-") {
			t.Fatalf("malformed event %d: %+v", i, ev)
		}
		seen[ev.Name] = true
	}
	if len(seen) != uploads {
		t.Errorf("expected %d distinct events, got %d", uploads, len(seen))
	}
}

func TestBuildEvents_BroadcastOnUpload(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/builds"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Give the handler a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	postSnapshot(t, ts, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:  "<html><body>event</body></html>",
			URL:  "https://example.com",
			Name: "Streamed",
		},
		TestType: model.TestTypePuppeteer,
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev compareserver.BuildEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading build event: %v", err)
	}
	if ev.Name != "Streamed" {
		t.Errorf("expected event for Streamed, got %q", ev.Name)
	}
	if ev.SnapshotID == "" {
		t.Error("expected a snapshot id on the event")
	}
}
