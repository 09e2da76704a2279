package runtime_test

import (
	"strings"
	"testing"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/runtime"
	"github.com/smartui-sdk/smartui-go/internal/testutil"
)

func TestNew_UnknownBackendListsAvailable(t *testing.T) {
	runtime.Register("fake", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		return &testutil.DummyRuntime{}, nil
	})

	cfg := config.DefaultConfig()
	cfg.Backend = "no-such-backend"

	_, err := runtime.New(cfg, &testutil.DummyLogger{})
	if err == nil {
		t.Fatal("expected error for unregistered backend")
	}
	if !strings.Contains(err.Error(), "no-such-backend") {
		t.Errorf("expected backend name in error, got %q", err)
	}
	if !strings.Contains(err.Error(), "fake") {
		t.Errorf("expected available backends in error, got %q", err)
	}
}

func TestNew_NameIsCaseInsensitive(t *testing.T) {
	runtime.Register("cased", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		return &testutil.DummyRuntime{}, nil
	})

	cfg := config.DefaultConfig()
	cfg.Backend = "  CASED "

	rt, err := runtime.New(cfg, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()
}

func TestRegister_IgnoresEmptyNameAndNilCtor(t *testing.T) {
	before := len(runtime.ListBackends())
	runtime.Register("", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		return nil, nil
	})
	runtime.Register("nil-ctor", nil)
	if after := len(runtime.ListBackends()); after != before {
		t.Errorf("expected registry unchanged, went from %d to %d", before, after)
	}
}
