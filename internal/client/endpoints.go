package client

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

const (
	endpointMetrics       = "/metrics"
	endpointVarz          = "/api/v1/varz"
	endpointMasters       = "/api/v1/masters"
	endpointTabletServers = "/api/v1/tablet-servers"
	endpointIsLeader      = "/api/v1/is-leader"
	endpointMemTrackers   = "/mem-trackers"

	acceptJSON       = "application/json"
	acceptPrometheus = "text/plain;version=0.0.4"
	acceptHTML       = "text/html"
)

// GetMetrics fetches the JSON /metrics payload.
func (c *DefaultClient) GetMetrics(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointMetrics, acceptJSON)
	if err != nil {
		return nil, errors.Wrap(err, "GetMetrics")
	}
	return body, nil
}

// GetNodeExporter fetches node_exporter's Prometheus text /metrics payload.
func (c *DefaultClient) GetNodeExporter(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointMetrics, acceptPrometheus)
	if err != nil {
		return nil, errors.Wrap(err, "GetNodeExporter")
	}
	return body, nil
}

// GetVarz fetches the gflags from /api/v1/varz.
func (c *DefaultClient) GetVarz(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointVarz, acceptJSON)
	if err != nil {
		return nil, errors.Wrap(err, "GetVarz")
	}
	return body, nil
}

// GetMasters fetches the master list from /api/v1/masters.
func (c *DefaultClient) GetMasters(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointMasters, acceptJSON)
	if err != nil {
		return nil, errors.Wrap(err, "GetMasters")
	}
	return body, nil
}

// GetTabletServers fetches the tablet server list from /api/v1/tablet-servers.
func (c *DefaultClient) GetTabletServers(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointTabletServers, acceptJSON)
	if err != nil {
		return nil, errors.Wrap(err, "GetTabletServers")
	}
	return body, nil
}

// GetMemTrackers fetches the HTML /mem-trackers page.
func (c *DefaultClient) GetMemTrackers(ctx context.Context, hostPort string) ([]byte, error) {
	body, err := c.doGet(ctx, hostPort, endpointMemTrackers, acceptHTML)
	if err != nil {
		return nil, errors.Wrap(err, "GetMemTrackers")
	}
	return body, nil
}

// IsLeader asks /api/v1/is-leader. The leader master answers 200; followers
// answer 503. Any other status, and transport failures, are errors.
func (c *DefaultClient) IsLeader(ctx context.Context, hostPort string) (bool, error) {
	status, body, err := c.do(ctx, hostPort, endpointIsLeader, acceptJSON)
	if err != nil {
		return false, errors.Wrap(err, "IsLeader")
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusServiceUnavailable:
		return false, nil
	default:
		return false, errors.Newf("IsLeader: unexpected status %d: %s", status, truncate(body, 200))
	}
}
