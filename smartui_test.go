package smartui_test

import (
	"context"
	"errors"
	"testing"

	smartui "github.com/smartui-sdk/smartui-go"
	"github.com/smartui-sdk/smartui-go/internal/testutil"
)

func TestSnapshot_EndToEndThroughDummyServer(t *testing.T) {
	t.Parallel()

	server := &testutil.DummyServerClient{CLIVersion: "1.2.3"}
	client, err := smartui.New(smartui.DefaultConfig(),
		smartui.WithLogger(&testutil.DummyLogger{}),
		smartui.WithServerClient(server),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rt := &testutil.DummyRuntime{PageURL: "https://example.com/home"}
	if err := client.Snapshot(context.Background(), rt, "Home", nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	want := []string{"healthcheck", "domserializer", "snapshot"}
	got := server.CallNames()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, got)
		}
	}
}

func TestSnapshot_InteractiveSessionSkipsWithoutNetwork(t *testing.T) {
	t.Setenv("SMARTUI_TEST_INTERACTIVE", "1")

	server := &testutil.DummyServerClient{CLIVersion: "1.2.3"}
	logger := &testutil.DummyLogger{}
	cfg := smartui.DefaultConfig()
	cfg.InteractiveEnv = "SMARTUI_TEST_INTERACTIVE"

	client, err := smartui.New(cfg,
		smartui.WithLogger(logger),
		smartui.WithServerClient(server),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Snapshot(context.Background(), &testutil.DummyRuntime{}, "Home", nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(server.CallNames()) != 0 {
		t.Errorf("expected no server calls in interactive mode, got %v", server.CallNames())
	}

	found := false
	for _, msg := range logger.Infos {
		if msg == "snapshot skipped: interactive session" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip notice, got infos %v", logger.Infos)
	}
}

func TestSnapshot_InteractiveEnvUnsetCapturesNormally(t *testing.T) {
	t.Setenv("SMARTUI_TEST_INTERACTIVE", "")

	server := &testutil.DummyServerClient{CLIVersion: "1.2.3"}
	cfg := smartui.DefaultConfig()
	cfg.InteractiveEnv = "SMARTUI_TEST_INTERACTIVE"

	client, err := smartui.New(cfg, smartui.WithLogger(&testutil.DummyLogger{}), smartui.WithServerClient(server))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Snapshot(context.Background(), &testutil.DummyRuntime{}, "Home", nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(server.CallNames()) != 3 {
		t.Errorf("expected a full capture, got calls %v", server.CallNames())
	}
}

func TestSnapshot_ErrorTypesSurfaceToCallers(t *testing.T) {
	t.Parallel()

	server := &testutil.DummyServerClient{CLIVersion: ""}
	client, err := smartui.New(smartui.DefaultConfig(),
		smartui.WithLogger(&testutil.DummyLogger{}),
		smartui.WithServerClient(server),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Snapshot(context.Background(), &testutil.DummyRuntime{}, "Home", nil)
	var unavailable *smartui.ServerUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *ServerUnavailableError, got %v", err)
	}
}

func TestNewTracker_UsesClientRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := smartui.DefaultConfig()
	cfg.RetryAttempts = 2

	client, err := smartui.New(cfg,
		smartui.WithLogger(&testutil.DummyLogger{}),
		smartui.WithServerClient(&testutil.DummyServerClient{CLIVersion: "1.2.3"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := client.NewTracker(&testutil.DummyRuntime{}, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if st.SessionID() == "" {
		t.Error("expected a session id")
	}
	if err := st.Snapshot(context.Background(), "Home", nil); err != nil {
		t.Fatalf("tracker Snapshot: %v", err)
	}
}

func TestNavigate_UnsupportedRuntime(t *testing.T) {
	t.Parallel()

	err := smartui.Navigate(context.Background(), &testutil.DummyRuntime{}, "https://example.com")
	var pre *smartui.PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected *PreconditionError, got %v", err)
	}
}
