// Command smartui-server runs the local SmartUI comparison server: a
// development stand-in for the hosted comparison service, honoring the same
// healthcheck/domserializer/snapshot contract.
package main

import (
	"flag"
	"os"

	"github.com/smartui-sdk/smartui-go/internal/compareserver"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
)

func main() {
	defaults := compareserver.DefaultConfig()

	addr := flag.String("addr", defaults.Addr, "listen address")
	storage := flag.String("storage", defaults.StoragePath, "snapshot storage directory")
	cliVersion := flag.String("cli-version", defaults.CLIVersion, "version reported by /healthcheck")
	warnPercent := flag.Float64("warn-percent", defaults.ChangeWarnPercent, "DOM change percent that triggers a warning")
	flag.Parse()

	logger := logging.NewStdoutLogger("smartui-server")

	srv, err := compareserver.NewServer(compareserver.Config{
		Addr:              *addr,
		StoragePath:       *storage,
		CLIVersion:        *cliVersion,
		ChangeWarnPercent: *warnPercent,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to start comparison server",
			interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	defer srv.Close()

	if err := srv.Start(); err != nil {
		logger.Error("comparison server exited",
			interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}
