package serverclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smartui-sdk/smartui-go/internal/config"
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

// Client is the net/http backed implementation of interfaces.ServerClient.
// Each method performs exactly one HTTP request; retrying is the caller's
// concern.
type Client struct {
	baseURL string
	client  *http.Client
	logger  interfaces.Logger
}

// New resolves the server address from cfg (once, per the configured
// address policy) and builds a Client. Pass httpClient as nil to get a
// default client bounded by cfg.RequestTimeout.
func New(cfg *config.Config, logger interfaces.Logger, httpClient *http.Client) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	componentLogger := logging.OrNop(logger).With(interfaces.Field{Key: "component", Value: "serverclient"})

	baseURL, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving server address: %w", err)
	}

	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	componentLogger.Debug("created smartui server client",
		interfaces.Field{Key: "base_url", Value: baseURL},
		interfaces.Field{Key: "timeout", Value: httpClient.Timeout.String()})

	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		logger:  componentLogger,
	}, nil
}

// BaseURL returns the resolved server base address.
func (c *Client) BaseURL() string { return c.baseURL }

// CheckHealth probes GET /healthcheck. A transport failure is a
// *ConnectionError; a non-2xx response is a *ServerError. Interpretation of
// the cliVersion liveness signal is left to the caller.
func (c *Client) CheckHealth(ctx context.Context) (*model.HealthResult, error) {
	body, err := c.get(ctx, "/healthcheck")
	if err != nil {
		return nil, err
	}

	var env model.HealthEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding healthcheck response: %w", err)
	}
	return &model.HealthResult{CLIVersion: env.Data.CLIVersion}, nil
}

// FetchSerializer downloads the injectable DOM serializer source from
// GET /domserializer.
func (c *Client) FetchSerializer(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/domserializer")
	if err != nil {
		return "", err
	}

	var env model.SerializerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decoding domserializer response: %w", err)
	}
	if env.Data.DOM == "" {
		return "", fmt.Errorf("domserializer response contained no serializer source")
	}
	return env.Data.DOM, nil
}

// PostSnapshot uploads one captured snapshot via POST /snapshot with a JSON
// body of {snapshot, testType}.
func (c *Client) PostSnapshot(ctx context.Context, req *model.SnapshotRequest) (*model.UploadResult, error) {
	if req == nil || req.Snapshot == nil {
		return nil, fmt.Errorf("nil snapshot request")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot request: %w", err)
	}

	c.logger.Debug("uploading snapshot",
		interfaces.Field{Key: "name", Value: req.Snapshot.Name},
		interfaces.Field{Key: "test_type", Value: string(req.TestType)})

	body, err := c.do(ctx, http.MethodPost, "/snapshot", payload)
	if err != nil {
		return nil, err
	}

	var env model.UploadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot response: %w", err)
	}
	return &model.UploadResult{Warnings: env.Data.Warnings}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if method == http.MethodPost {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("smartui server request failed",
			interfaces.Field{Key: "method", Value: method},
			interfaces.Field{Key: "endpoint", Value: endpoint},
			interfaces.Field{Key: "error", Value: err.Error()})
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body, resp.StatusCode),
		}
	}
	return body, nil
}

// serverMessage prefers the body's error.message; otherwise it derives a
// generic message from the status code.
func serverMessage(body []byte, status int) string {
	var env model.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status))
}
