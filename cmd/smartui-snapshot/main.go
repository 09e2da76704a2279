// Command smartui-snapshot captures a single named snapshot of a URL and
// uploads it to the configured comparison server. Useful for smoke-testing
// a server setup without a full test suite.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	smartui "github.com/smartui-sdk/smartui-go"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
)

func main() {
	url := flag.String("url", "", "page URL to capture (required)")
	name := flag.String("name", "", "snapshot name (required)")
	backend := flag.String("backend", "chromedp", "runtime backend: chromedp, rod or webdriver")
	server := flag.String("server", "", "comparison server address (default: SMARTUI_SERVER_ADDRESS, then http://localhost:49152)")
	configPath := flag.String("config", "", "optional YAML config file")
	headless := flag.Bool("headless", true, "run the browser headless")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall capture deadline")
	flag.Parse()

	logger := logging.NewStdoutLogger("smartui-snapshot")
	fail := func(msg string, err error) {
		logger.Error(msg, interfaces.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}

	if *url == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := smartui.DefaultConfig()
	if *configPath != "" {
		loaded, err := smartui.LoadConfig(*configPath)
		if err != nil {
			fail("loading config", err)
		}
		cfg = loaded
	}
	if *server != "" {
		cfg.ServerAddress = *server
	}
	cfg.Backend = *backend
	if cfg.BackendOptions == nil {
		cfg.BackendOptions = map[string]any{}
	}
	cfg.BackendOptions["headless"] = *headless

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := smartui.New(cfg, smartui.WithLogger(logger))
	if err != nil {
		fail("creating smartui client", err)
	}

	rt, err := smartui.NewRuntime(cfg, logger)
	if err != nil {
		fail("creating runtime", err)
	}
	defer rt.Close()

	if err := smartui.Navigate(ctx, rt, *url); err != nil {
		fail("navigating", err)
	}

	if err := client.Snapshot(ctx, rt, *name, nil); err != nil {
		fail("capturing snapshot", err)
	}
}
