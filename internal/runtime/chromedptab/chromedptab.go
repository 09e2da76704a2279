// Package chromedptab adapts a chromedp-driven Chrome tab to the runtime
// capability contract. One Tab owns one chromedp context; captures issued
// against it run CDP commands in-order over the tab's command queue.
package chromedptab

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

const serializeExpr = `(typeof window.SmartUIDOM === 'object' && typeof window.SmartUIDOM.serialize === 'function') ? window.SmartUIDOM.serialize() : null`

// Option customizes a Tab.
type Option func(*Tab)

// WithTestType overrides the framework tag sent to the server. The default
// is js-puppeteer-driver; a CDP tab driven through this shim is
// indistinguishable from one driven by Puppeteer as far as the protocol is
// concerned.
func WithTestType(tt model.TestType) Option {
	return func(t *Tab) { t.testType = tt }
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(t *Tab) { t.headless = headless }
}

// WithIdleAfter sets how long the network must stay quiet after navigation
// before the page is considered settled.
func WithIdleAfter(d time.Duration) Option {
	return func(t *Tab) { t.idleAfter = d }
}

// Tab is a chromedp-backed implementation of interfaces.Runtime.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc

	testType  model.TestType
	headless  bool
	idleAfter time.Duration
	logger    interfaces.Logger
}

// NewTab launches (or attaches to) a browser and opens a fresh tab.
func NewTab(parent context.Context, logger interfaces.Logger, opts ...Option) (*Tab, error) {
	if parent == nil {
		parent = context.Background()
	}
	t := &Tab{
		testType:  model.TestTypePuppeteer,
		headless:  true,
		idleAfter: 2 * time.Second,
		logger:    logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "chromedptab"}),
	}
	for _, opt := range opts {
		opt(t)
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if !t.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	t.ctx = tabCtx
	t.cancel = func() {
		tabCancel()
		allocCancel()
	}

	t.logger.Debug("created chromedp tab",
		interfaces.Field{Key: "headless", Value: t.headless},
		interfaces.Field{Key: "test_type", Value: string(t.testType)})
	return t, nil
}

// Navigate loads url and waits for the network to go idle so the captured
// DOM reflects a settled page.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	idleCh := waitNetworkIdle(t.ctx, t.idleAfter)

	if err := chromedp.Run(t.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	select {
	case <-idleCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// RunScript executes arbitrary script source in the page.
func (t *Tab) RunScript(ctx context.Context, source string) error {
	if err := t.run(ctx, chromedp.Evaluate(source, nil)); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

// Evaluate evaluates an expression and returns its JSON-decoded value.
func (t *Tab) Evaluate(ctx context.Context, expr string) (any, error) {
	var res any
	if err := t.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return res, nil
}

// URL reports the tab's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// CaptureDOM prefers the injected SmartUIDOM serializer; when it is absent
// the tab falls back to the document's outer HTML.
func (t *Tab) CaptureDOM(ctx context.Context) (string, error) {
	res, err := t.Evaluate(ctx, serializeExpr)
	if err != nil {
		return "", err
	}

	switch v := res.(type) {
	case nil:
		// Serializer not injected; fall through to the native dump.
	case string:
		if v != "" {
			return v, nil
		}
	default:
		// The serializer may return a structured object; it is a
		// pass-through blob for us, so carry it as JSON.
		enc, merr := json.Marshal(v)
		if merr != nil {
			return "", fmt.Errorf("encode serialized dom: %w", merr)
		}
		return string(enc), nil
	}

	var html string
	if err := t.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}

func (t *Tab) TestType() model.TestType { return t.testType }

// Close tears down the tab and its allocator.
func (t *Tab) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// run executes actions on the tab's chromedp context while honoring the
// caller's cancellation and deadline.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := runContext(t.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// runContext derives the context for one action batch: rooted in the tab's
// context so commands reach the right target, ended when the caller's
// context ends. Deadlines need no separate handling; call.Done() fires on
// expiry too.
func runContext(tab, call context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(call, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// waitNetworkIdle signals once no network requests have been in flight for
// idleAfter. The returned channel fires at most once.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					close(idleChan)
				})
			}
		})
	}

	chromedp.ListenTarget(ctx,
		func(ev any) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				atomic.AddInt32(&activeReqs, 1)
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if atomic.AddInt32(&activeReqs, -1) <= 0 {
					startTimer()
				}
			}
		})

	// Cover pages that issue no requests at all.
	startTimer()

	return idleChan
}
