package compareserver

import "github.com/smartui-sdk/smartui-go/internal/interfaces"

// Config holds configuration for the local comparison server.
type Config struct {
	// Addr is the listen address, e.g. ":49152".
	Addr string

	// StoragePath is the directory holding the snapshot database.
	StoragePath string

	// CLIVersion is reported by /healthcheck. Leaving it empty makes the
	// server report itself as not ready, which is occasionally useful for
	// exercising client liveness handling.
	CLIVersion string

	// ChangeWarnPercent is the DOM change ratio (0-100) above which an
	// upload earns a change warning. Default: 25.
	ChangeWarnPercent float64

	Logger interfaces.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":49152",
		StoragePath:       ".smartui",
		CLIVersion:        "0.1.0",
		ChangeWarnPercent: 25,
	}
}
