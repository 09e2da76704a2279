// Package rodpage adapts a go-rod page to the runtime capability contract.
package rodpage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

const serializeJS = `() => (typeof window.SmartUIDOM === 'object' && typeof window.SmartUIDOM.serialize === 'function') ? window.SmartUIDOM.serialize() : null`

// Option customizes a Page.
type Option func(*Page)

// WithTestType overrides the framework tag. Default is js-playwright-driver.
func WithTestType(tt model.TestType) Option {
	return func(p *Page) { p.testType = tt }
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(p *Page) { p.headless = headless }
}

// WithStealth creates the page through go-rod/stealth to blunt headless
// detection on the page under test.
func WithStealth() Option {
	return func(p *Page) { p.stealth = true }
}

// WithControlURL attaches to an already-running browser instead of
// launching one.
func WithControlURL(u string) Option {
	return func(p *Page) { p.controlURL = u }
}

// WithNavigateTimeout bounds Navigate (including the load wait).
func WithNavigateTimeout(d time.Duration) Option {
	return func(p *Page) { p.navTimeout = d }
}

// Page is a rod-backed implementation of interfaces.Runtime.
type Page struct {
	browser *rod.Browser
	page    *rod.Page

	ownsBrowser bool
	headless    bool
	stealth     bool
	controlURL  string
	navTimeout  time.Duration
	testType    model.TestType
	logger      interfaces.Logger
}

// NewPage connects to (or launches) a browser and opens a blank page.
func NewPage(logger interfaces.Logger, opts ...Option) (*Page, error) {
	p := &Page{
		headless:   true,
		navTimeout: 30 * time.Second,
		testType:   model.TestTypePlaywright,
		logger:     logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "rodpage"}),
	}
	for _, opt := range opts {
		opt(p)
	}

	controlURL := p.controlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(p.headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		p.ownsBrowser = true
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	p.browser = browser

	var page *rod.Page
	var err error
	if p.stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		if p.ownsBrowser {
			_ = browser.Close()
		}
		return nil, fmt.Errorf("create page: %w", err)
	}
	p.page = page

	p.logger.Debug("created rod page",
		interfaces.Field{Key: "headless", Value: p.headless},
		interfaces.Field{Key: "stealth", Value: p.stealth})
	return p, nil
}

// Navigate loads url and waits for the page load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	if err := p.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.page.Context(navCtx).WaitLoad(); err != nil {
		p.logger.Warn("wait load timed out",
			interfaces.Field{Key: "url", Value: url},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

// RunScript executes arbitrary script source in the page. Rod evaluates
// functions, so the source is wrapped in an IIFE-style body.
func (p *Page) RunScript(ctx context.Context, source string) error {
	wrapped := "() => {\n" + source + "\n}"
	if _, err := p.page.Context(ctx).Eval(wrapped); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

// Evaluate evaluates a single expression and returns its value.
func (p *Page) Evaluate(ctx context.Context, expr string) (any, error) {
	res, err := p.page.Context(ctx).Eval(expr)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return res.Value.Val(), nil
}

// URL reports the page's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// CaptureDOM prefers the injected SmartUIDOM serializer, falling back to
// the document's outer HTML.
func (p *Page) CaptureDOM(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(serializeJS)
	if err != nil {
		return "", fmt.Errorf("serialize dom: %w", err)
	}

	val := res.Value.Val()
	switch v := val.(type) {
	case nil:
	case string:
		if v != "" {
			return v, nil
		}
	default:
		enc, merr := json.Marshal(v)
		if merr != nil {
			return "", fmt.Errorf("encode serialized dom: %w", merr)
		}
		return string(enc), nil
	}

	out, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return out.Value.Str(), nil
}

func (p *Page) TestType() model.TestType { return p.testType }

// Close closes the page, and the browser too when this shim launched it.
func (p *Page) Close() error {
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			return err
		}
	}
	if p.ownsBrowser && p.browser != nil {
		return p.browser.Close()
	}
	return nil
}
