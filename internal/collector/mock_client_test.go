package collector

import (
	"context"
	"errors"
	"sync"
)

// mockClient implements client.Client for testing. Each Fn, when set,
// answers for every hostname:port; unset ones fail with errMockFailure.
type mockClient struct {
	MetricsFn       func(ctx context.Context, hostPort string) ([]byte, error)
	NodeExporterFn  func(ctx context.Context, hostPort string) ([]byte, error)
	VarzFn          func(ctx context.Context, hostPort string) ([]byte, error)
	MastersFn       func(ctx context.Context, hostPort string) ([]byte, error)
	TabletServersFn func(ctx context.Context, hostPort string) ([]byte, error)
	MemTrackersFn   func(ctx context.Context, hostPort string) ([]byte, error)
	IsLeaderFn      func(ctx context.Context, hostPort string) (bool, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func call(ctx context.Context, fn func(context.Context, string) ([]byte, error), hostPort string) ([]byte, error) {
	if fn == nil {
		return nil, errMockFailure
	}
	return fn(ctx, hostPort)
}

func (m *mockClient) GetMetrics(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("metrics " + hostPort)
	return call(ctx, m.MetricsFn, hostPort)
}

func (m *mockClient) GetNodeExporter(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("node_exporter " + hostPort)
	return call(ctx, m.NodeExporterFn, hostPort)
}

func (m *mockClient) GetVarz(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("varz " + hostPort)
	return call(ctx, m.VarzFn, hostPort)
}

func (m *mockClient) GetMasters(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("masters " + hostPort)
	return call(ctx, m.MastersFn, hostPort)
}

func (m *mockClient) GetTabletServers(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("tablet_servers " + hostPort)
	return call(ctx, m.TabletServersFn, hostPort)
}

func (m *mockClient) GetMemTrackers(ctx context.Context, hostPort string) ([]byte, error) {
	m.record("mem_trackers " + hostPort)
	return call(ctx, m.MemTrackersFn, hostPort)
}

func (m *mockClient) IsLeader(ctx context.Context, hostPort string) (bool, error) {
	m.record("is_leader " + hostPort)
	if m.IsLeaderFn == nil {
		return false, errMockFailure
	}
	return m.IsLeaderFn(ctx, hostPort)
}

var errMockFailure = errors.New("mock failure")
