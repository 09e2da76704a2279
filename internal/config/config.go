package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvServerAddress is the environment variable consulted for the comparison
// server address before any configured value.
const EnvServerAddress = "SMARTUI_SERVER_ADDRESS"

// DefaultServerAddress is used under AddressPolicyDefault when nothing else
// is configured.
const DefaultServerAddress = "http://localhost:49152"

// ErrServerAddressUnset is returned by Resolve under AddressPolicyRequire
// when no address is configured anywhere.
var ErrServerAddressUnset = errors.New("smartui server address is not configured")

// AddressPolicy selects what happens when no server address is configured.
// The choice is deliberately explicit: silently defaulting in one deployment
// and hard-failing in another is exactly the divergence this knob removes.
type AddressPolicy string

const (
	// AddressPolicyDefault falls back to DefaultServerAddress.
	AddressPolicyDefault AddressPolicy = "default-to-localhost"

	// AddressPolicyRequire fails with ErrServerAddressUnset.
	AddressPolicyRequire AddressPolicy = "fail-if-unset"
)

// Config contains the runtime configuration for the capture client.
type Config struct {
	// ServerAddress is the comparison server base URL. The environment
	// variable EnvServerAddress takes precedence when set.
	ServerAddress string

	// AddressPolicy controls behavior when ServerAddress resolves empty.
	AddressPolicy AddressPolicy

	// RequestTimeout bounds each individual HTTP call to the server.
	RequestTimeout time.Duration

	// Backend names the runtime shim to construct via the registry
	// ("chromedp", "rod", "webdriver").
	Backend string

	// BackendOptions carries backend-specific settings such as
	// "headless" or "navigate_timeout".
	BackendOptions map[string]any

	// InteractiveEnv names an environment variable that, when set to a
	// non-empty value, marks an interactive (non-recorded) run: captures
	// are suppressed with a skip notice instead of contacting the server.
	InteractiveEnv string

	// Retry settings for the session tracker's bounded retry wrapper.
	RetryAttempts  int
	AttemptTimeout time.Duration

	// SoftFail makes a finally-failed capture log at error level and
	// return nil instead of propagating. Off by default: errors propagate
	// unless the caller explicitly opts out.
	SoftFail bool
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		AddressPolicy:  AddressPolicyDefault,
		RequestTimeout: 30 * time.Second,
		Backend:        "chromedp",
		RetryAttempts:  1,
		AttemptTimeout: 60 * time.Second,
	}
}

// fileConfig mirrors Config for YAML decoding. Durations are strings in the
// file ("30s", "2m") since yaml.v3 only accepts raw nanosecond integers for
// time.Duration.
type fileConfig struct {
	ServerAddress  string         `yaml:"server_address"`
	AddressPolicy  AddressPolicy  `yaml:"address_policy"`
	RequestTimeout string         `yaml:"request_timeout"`
	Backend        string         `yaml:"backend"`
	BackendOptions map[string]any `yaml:"backend_options"`
	InteractiveEnv string         `yaml:"interactive_env"`
	RetryAttempts  int            `yaml:"retry_attempts"`
	AttemptTimeout string         `yaml:"attempt_timeout"`
	SoftFail       *bool          `yaml:"soft_fail"`
}

// LoadFile reads a YAML config file on top of DefaultConfig. Keys absent from
// the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if fc.ServerAddress != "" {
		cfg.ServerAddress = fc.ServerAddress
	}
	if fc.AddressPolicy != "" {
		cfg.AddressPolicy = fc.AddressPolicy
	}
	if fc.Backend != "" {
		cfg.Backend = fc.Backend
	}
	if fc.BackendOptions != nil {
		cfg.BackendOptions = fc.BackendOptions
	}
	if fc.InteractiveEnv != "" {
		cfg.InteractiveEnv = fc.InteractiveEnv
	}
	if fc.RetryAttempts > 0 {
		cfg.RetryAttempts = fc.RetryAttempts
	}
	if fc.SoftFail != nil {
		cfg.SoftFail = *fc.SoftFail
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: request_timeout: %w", path, err)
		}
		cfg.RequestTimeout = d
	}
	if fc.AttemptTimeout != "" {
		d, err := time.ParseDuration(fc.AttemptTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: attempt_timeout: %w", path, err)
		}
		cfg.AttemptTimeout = d
	}
	return cfg, nil
}

// Resolve determines the server base address once, at client construction.
// Precedence: environment variable, then configured value, then the policy.
// The result is immutable for the process lifetime by convention: callers
// resolve once and pass the resolved address around.
func (c *Config) Resolve() (string, error) {
	addr := strings.TrimSpace(os.Getenv(EnvServerAddress))
	if addr == "" {
		addr = strings.TrimSpace(c.ServerAddress)
	}
	if addr == "" {
		if c.AddressPolicy == AddressPolicyRequire {
			return "", ErrServerAddressUnset
		}
		addr = DefaultServerAddress
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server address %q: scheme must be http or https", addr)
	}
	return strings.TrimRight(addr, "/"), nil
}
