package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartui-sdk/smartui-go/internal/injector"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
	"github.com/smartui-sdk/smartui-go/internal/utils"
)

// State is a phase of one capture call. States progress strictly
// sequentially; no two states execute concurrently for the same call.
type State string

const (
	StateIdle                 State = "idle"
	StateCheckingAvailability State = "checking_availability"
	StateFetchingSerializer   State = "fetching_serializer"
	StateCapturing            State = "capturing"
	StateUploading            State = "uploading"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// Orchestrator sequences availability check, serializer fetch/inject,
// capture and upload for every framework identically. It holds no per-call
// state, performs no retries, and is safe for concurrent Capture calls:
// the only shared data is the server client's resolved address, which is
// read-only after construction.
type Orchestrator struct {
	client interfaces.ServerClient
	logger interfaces.Logger
}

// New ties together the server client and logger.
func New(client interfaces.ServerClient, logger interfaces.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		logger: logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "snapshot"}),
	}
}

// Capture runs the full capture state machine for one snapshot.
//
// Failure semantics: a bad name or nil runtime returns *PreconditionError
// with zero network calls made; an unreachable server fails the
// availability check; a 2xx healthcheck without cliVersion returns
// *ServerUnavailableError; any later failure carries the snapshot name so
// test-runner output can attribute it. Warnings returned by the server
// never fail the call; they are relayed to the logger in order.
func (o *Orchestrator) Capture(ctx context.Context, rt interfaces.Runtime, name string, options map[string]any) (*model.CaptureResult, error) {
	c := &capture{state: StateIdle, name: name, logger: o.logger}

	if strings.TrimSpace(name) == "" {
		return nil, c.fail(&PreconditionError{Reason: "snapshot name must be a non-empty string"})
	}
	if rt == nil {
		return nil, c.fail(&PreconditionError{Reason: "runtime handle is required"})
	}
	if options == nil {
		options = map[string]any{}
	}

	c.to(StateCheckingAvailability)
	health, err := o.client.CheckHealth(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q: smartui server is not reachable: %w", name, err))
	}
	if health == nil || health.CLIVersion == "" {
		return nil, c.fail(&ServerUnavailableError{Address: o.serverAddress()})
	}

	c.to(StateFetchingSerializer)
	source, err := o.client.FetchSerializer(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q: fetching dom serializer: %w", name, err))
	}

	c.to(StateCapturing)
	if err := injector.Inject(ctx, rt, source, o.logger); err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q: %w", name, err))
	}
	dom, err := rt.CaptureDOM(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q: capturing dom: %w", name, err))
	}
	pageURL, err := rt.URL(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q: reading page url: %w", name, err))
	}
	if canonical, cerr := utils.CanonicalizeSnapshotURL(pageURL); cerr == nil {
		pageURL = canonical
	}

	c.to(StateUploading)
	upload, err := o.client.PostSnapshot(ctx, &model.SnapshotRequest{
		Snapshot: &model.Snapshot{
			DOM:     dom,
			URL:     pageURL,
			Name:    name,
			Options: options,
		},
		TestType: rt.TestType(),
	})
	if err != nil {
		return nil, c.fail(fmt.Errorf("snapshot %q capture failed: %w", name, err))
	}

	for _, w := range upload.Warnings {
		o.logger.Warn(w, interfaces.Field{Key: "snapshot", Value: name})
	}
	o.logger.Info("snapshot captured", interfaces.Field{Key: "snapshot", Value: name})

	c.to(StateDone)
	return &model.CaptureResult{
		Name:     name,
		URL:      pageURL,
		Warnings: upload.Warnings,
	}, nil
}

func (o *Orchestrator) serverAddress() string {
	if addressed, ok := o.client.(interface{ BaseURL() string }); ok {
		return addressed.BaseURL()
	}
	return "unknown address"
}

// capture tracks the state of one in-flight call. It exists per call, so
// concurrent captures never share it.
type capture struct {
	state  State
	name   string
	logger interfaces.Logger
}

func (c *capture) to(next State) {
	c.state = next
	c.logger.Debug("capture state",
		interfaces.Field{Key: "snapshot", Value: c.name},
		interfaces.Field{Key: "state", Value: string(next)})
}

func (c *capture) fail(err error) error {
	c.state = StateFailed
	return err
}
