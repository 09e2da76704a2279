package smartui

import (
	"github.com/smartui-sdk/smartui-go/internal/runtime"
)

// Named runtime constructors for callers that know their framework up
// front. Each forces the corresponding backend and applies
// cfg.BackendOptions; NewRuntime stays the config-driven path.

// NewChromedpRuntime launches a Chrome tab driven over CDP.
func NewChromedpRuntime(cfg *Config, logger Logger) (Runtime, error) {
	return newBackend("chromedp", cfg, logger)
}

// NewRodRuntime launches (or attaches to, via backend_options.control_url)
// a rod-driven browser page.
func NewRodRuntime(cfg *Config, logger Logger) (Runtime, error) {
	return newBackend("rod", cfg, logger)
}

// NewWebDriverRuntime attaches to a W3C WebDriver/Appium session named by
// backend_options.server_url and backend_options.session_id.
func NewWebDriverRuntime(cfg *Config, logger Logger) (Runtime, error) {
	return newBackend("webdriver", cfg, logger)
}

func newBackend(name string, cfg *Config, logger Logger) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		clone := *cfg
		cfg = &clone
	}
	cfg.Backend = name

	runtime.RegisterDefaultBackends()
	return runtime.New(cfg, logger)
}
