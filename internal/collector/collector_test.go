package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargets(t *testing.T) {
	got := Targets([]string{"n1", "n2"}, []int{7000, 9000, 9300}, MetricsPorts)
	assert.Equal(t, []string{"n1:7000", "n1:9000", "n2:7000", "n2:9000"}, got)

	assert.Equal(t, []string{"[::1]:7000"}, Targets([]string{"::1"}, []int{7000}, MasterPorts))
	assert.Empty(t, Targets([]string{"n1"}, []int{9300}, MasterPorts))
}

func TestCollect_AllSources(t *testing.T) {
	mc := &mockClient{
		MetricsFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`[{"type":"server","id":"yb.tabletserver","attributes":{},"metrics":[{"name":"x","value":1}]}]`), nil
		},
		NodeExporterFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte("# TYPE node_load1 gauge\nnode_load1 1\n"), nil
		},
		VarzFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"flags":[{"name":"f","value":"1","type":"Default"}]}`), nil
		},
		MastersFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"masters":[{"instance_id":{"permanent_uuid":"u1"},"role":"LEADER"}]}`), nil
		},
		TabletServersFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"p":{"n1:9000":{"status":"ALIVE"}}}`), nil
		},
		MemTrackersFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`<table><tr data-depth="0"><td>root</td><td>1K</td><td>2K</td><td>none</td></tr></table>`), nil
		},
		IsLeaderFn: func(_ context.Context, hostPort string) (bool, error) {
			return hostPort == "n1:7000", nil
		},
	}
	log, _ := test.NewNullLogger()
	c := New(mc, 4, log)

	snap := c.Collect(context.Background(), []string{"n1", "n2"}, DefaultPorts)

	// 2 hosts x 4 metrics ports.
	require.Len(t, snap.Metrics, 8)
	assert.Equal(t, "n1:7000", snap.Metrics[0].HostnamePort)
	assert.Equal(t, "n2:13000", snap.Metrics[7].HostnamePort)
	assert.False(t, snap.Metrics[0].Timestamp.IsZero())

	assert.Len(t, snap.NodeExporter, 2)
	assert.Len(t, snap.Vars, 4)
	assert.Len(t, snap.Masters, 2)
	assert.Len(t, snap.TabletServers, 2)
	assert.Len(t, snap.MemTrackers, 4)
	require.Len(t, snap.Leaders, 2)
	assert.True(t, snap.Leaders[0].IsLeader)
	assert.False(t, snap.Leaders[1].IsLeader)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestCollect_FailuresAreAbsorbed(t *testing.T) {
	mc := &mockClient{
		MetricsFn: func(_ context.Context, hostPort string) ([]byte, error) {
			switch hostPort {
			case "n1:9000":
				return nil, errMockFailure
			case "n1:12000":
				return []byte("not json"), nil
			}
			return []byte(`[]`), nil
		},
	}
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	c := New(mc, 2, log)

	snap := c.Collect(context.Background(), []string{"n1"}, []int{7000, 9000, 12000})
	assert.Empty(t, snap.Metrics)
	assert.Empty(t, snap.Vars)
	assert.Empty(t, snap.Leaders)

	var failed int
	for _, e := range hook.AllEntries() {
		if e.Message == "fetch failed" {
			failed++
			assert.Equal(t, logrus.DebugLevel, e.Level)
		}
	}
	// metrics on 9000 and 12000, varz and mem_trackers on 7000 and 9000,
	// masters, tablet servers and is_leader on 7000.
	assert.Equal(t, 9, failed)
}

func TestCollect_BoundedParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32
	mc := &mockClient{
		MetricsFn: func(_ context.Context, _ string) ([]byte, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return []byte(`[]`), nil
		},
	}
	log, _ := test.NewNullLogger()
	c := New(mc, 2, log)

	c.Collect(context.Background(), []string{"n1", "n2", "n3"}, []int{12000, 13000})
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, mc.calls, 6)
}

func TestCollect_StampsFetchTime(t *testing.T) {
	mc := &mockClient{
		MetricsFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`[{"type":"server","id":"s","attributes":{},"metrics":[]}]`), nil
		},
	}
	log, _ := test.NewNullLogger()
	c := New(mc, 1, log)
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	snap := c.Collect(context.Background(), []string{"n1"}, []int{9000})
	require.Len(t, snap.Metrics, 1)
	assert.Equal(t, fixed, snap.Metrics[0].Timestamp)
	assert.Equal(t, fixed, snap.FetchedAt)
}

func TestNew_ClampsParallel(t *testing.T) {
	c := New(&mockClient{}, 0, nil)
	assert.Equal(t, DefaultParallel, c.parallel)
}
