package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/runtime/chromedptab"
	"github.com/smartui-sdk/smartui-go/internal/runtime/rodpage"
	"github.com/smartui-sdk/smartui-go/internal/runtime/webdriver"
)

// RegisterDefaultBackends registers the chromedp, rod and webdriver
// backends. Call this from init() or early in main() to make backends
// available to New.
func RegisterDefaultBackends() {
	Register("chromedp", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		opts := []chromedptab.Option{}
		if headless, ok := boolOption(cfg.BackendOptions, "headless"); ok {
			opts = append(opts, chromedptab.WithHeadless(headless))
		}
		if idle, ok := durationOption(cfg.BackendOptions, "idle_after"); ok {
			opts = append(opts, chromedptab.WithIdleAfter(idle))
		}
		if tt, ok := stringOption(cfg.BackendOptions, "test_type"); ok {
			opts = append(opts, chromedptab.WithTestType(model.TestType(tt)))
		}
		return chromedptab.NewTab(context.Background(), logger, opts...)
	})

	Register("rod", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		opts := []rodpage.Option{}
		if headless, ok := boolOption(cfg.BackendOptions, "headless"); ok {
			opts = append(opts, rodpage.WithHeadless(headless))
		}
		if use, ok := boolOption(cfg.BackendOptions, "stealth"); ok && use {
			opts = append(opts, rodpage.WithStealth())
		}
		if u, ok := stringOption(cfg.BackendOptions, "control_url"); ok {
			opts = append(opts, rodpage.WithControlURL(u))
		}
		if tt, ok := stringOption(cfg.BackendOptions, "test_type"); ok {
			opts = append(opts, rodpage.WithTestType(model.TestType(tt)))
		}
		return rodpage.NewPage(logger, opts...)
	})

	Register("webdriver", func(cfg *config.Config, logger interfaces.Logger) (interfaces.Runtime, error) {
		serverURL, ok := stringOption(cfg.BackendOptions, "server_url")
		if !ok {
			return nil, fmt.Errorf("webdriver backend requires backend_options.server_url")
		}
		sessionID, ok := stringOption(cfg.BackendOptions, "session_id")
		if !ok {
			return nil, fmt.Errorf("webdriver backend requires backend_options.session_id")
		}

		opts := []webdriver.Option{}
		if native, ok := boolOption(cfg.BackendOptions, "native"); ok && native {
			opts = append(opts, webdriver.WithNativeContext())
		}
		if tt, ok := stringOption(cfg.BackendOptions, "test_type"); ok {
			opts = append(opts, webdriver.WithTestType(model.TestType(tt)))
		}
		return webdriver.Attach(serverURL, sessionID, logger, opts...)
	})
}

func stringOption(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok && s != ""
}

func boolOption(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

func durationOption(m map[string]any, key string) (time.Duration, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Second, true
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	return 0, false
}
