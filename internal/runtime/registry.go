// Package runtime holds the registry of automation runtime backends. Shims
// live in subpackages and register themselves by name; callers construct a
// runtime from config without importing any concrete backend.
package runtime

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
)

// Constructor builds an interfaces.Runtime from the config and logger.
type Constructor func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register registers a named backend constructor. Name is lower-cased
// internally. Registering the same name again overwrites the previous
// constructor.
func Register(name string, ctor Constructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// New constructs the configured runtime backend. It returns an error if the
// named backend has not been registered.
func New(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "chromedp"
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("runtime backend %q not registered: available backends=%v", backend, ListBackends())
	}

	rt, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct runtime backend %q: %w", backend, err)
	}
	if rt == nil {
		return nil, errors.New("runtime constructor returned nil")
	}
	return rt, nil
}

// ListBackends returns the list of registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
