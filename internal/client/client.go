package client

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Client fetches raw diagnostic payloads from one YugabyteDB web server,
// addressed by hostname:port.
type Client interface {
	GetMetrics(ctx context.Context, hostPort string) ([]byte, error)
	GetNodeExporter(ctx context.Context, hostPort string) ([]byte, error)
	GetVarz(ctx context.Context, hostPort string) ([]byte, error)
	GetMasters(ctx context.Context, hostPort string) ([]byte, error)
	GetTabletServers(ctx context.Context, hostPort string) ([]byte, error)
	GetMemTrackers(ctx context.Context, hostPort string) ([]byte, error)
	IsLeader(ctx context.Context, hostPort string) (bool, error)
}

// ClientConfig holds configuration for DefaultClient.
type ClientConfig struct {
	HTTPS              bool
	Username           string
	Password           string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
}

// DefaultClient implements Client using the standard net/http package.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// It configures TLS skip-verify and request timeout from the config.
func NewDefaultClient(cfg ClientConfig) *DefaultClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	return &DefaultClient{
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		config: cfg,
	}
}

func (c *DefaultClient) url(hostPort, path string) string {
	scheme := "http"
	if c.config.HTTPS {
		scheme = "https"
	}
	return scheme + "://" + hostPort + path
}

// do performs a GET request against hostPort and returns the status code
// and body. Non-2xx statuses are not treated as errors here.
func (c *DefaultClient) do(ctx context.Context, hostPort, path, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(hostPort, path), nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Accept", accept)

	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	const maxResponseBytes = 256 * 1024 * 1024 // tablet-heavy /metrics pages get large
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read body")
	}
	if len(body) > maxResponseBytes {
		return resp.StatusCode, nil, errors.Newf("response body exceeds %d MB limit", maxResponseBytes/(1024*1024))
	}
	return resp.StatusCode, body, nil
}

// doGet performs a GET request and returns the body, or an error on
// non-2xx status.
func (c *DefaultClient) doGet(ctx context.Context, hostPort, path, accept string) ([]byte, error) {
	status, body, err := c.do(ctx, hostPort, path, accept)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errors.Newf("unexpected status %d: %s", status, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
