package present

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/model"
	"github.com/dm/yb-stats/internal/snapshot"
)

var (
	t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(10 * time.Second)
)

func snapshots() (*model.Snapshot, *model.Snapshot) {
	leaders := []model.IsLeader{{HostnamePort: "m1:7000", IsLeader: true}}
	orders := model.Attributes{NamespaceName: "yugabyte", TableName: "orders"}
	first := &model.Snapshot{
		FetchedAt: t0,
		Metrics: []model.Entity{
			{HostnamePort: "n1:7000", Timestamp: t0, Type: "server", ID: "yb.master",
				Samples: []model.Sample{model.Value{Name: "mem_tracker", Value: 500}}},
			{HostnamePort: "n1:9000", Timestamp: t0, Type: "tablet", ID: "t1", Attributes: orders,
				Samples: []model.Sample{
					model.Value{Name: "rows_inserted", Value: 100},
					model.CountSum{Name: "handler_latency_yb_tserver_TabletServerService_Write", TotalCount: 10, TotalSum: 100},
				}},
			{HostnamePort: "n2:9000", Timestamp: t0, Type: "server", ID: "yb.tabletserver",
				Samples: []model.Sample{model.RejectedBoolean{Name: "odd", Value: true}}},
		},
		Vars:    []model.Var{{HostnamePort: "n1:9000", Name: "ysql_max_connections", Value: "300", Type: "Default"}},
		Leaders: leaders,
		TabletServers: []model.TabletServer{
			{HostnamePort: "m1:7000", Server: "n1:9000", Status: "ALIVE", UptimeSeconds: 5000},
		},
	}
	second := &model.Snapshot{
		FetchedAt: t1,
		Metrics: []model.Entity{
			{HostnamePort: "n1:7000", Timestamp: t1, Type: "server", ID: "yb.master",
				Samples: []model.Sample{model.Value{Name: "mem_tracker", Value: 800}}},
			{HostnamePort: "n1:9000", Timestamp: t1, Type: "tablet", ID: "t1", Attributes: orders,
				Samples: []model.Sample{
					model.Value{Name: "rows_inserted", Value: 150},
					model.CountSum{Name: "handler_latency_yb_tserver_TabletServerService_Write", TotalCount: 30, TotalSum: 400},
				}},
		},
		Vars:    []model.Var{{HostnamePort: "n1:9000", Name: "ysql_max_connections", Value: "500", Type: "Custom"}},
		Leaders: leaders,
		TabletServers: []model.TabletServer{
			{HostnamePort: "m1:7000", Server: "n1:9000", Status: "ALIVE", UptimeSeconds: 30},
		},
	}
	return first, second
}

func render(t *testing.T, detail bool, f Filters, opts Options) string {
	t.Helper()
	first, second := snapshots()
	log, _ := test.NewNullLogger()
	rep, err := engine.DiffSnapshots(first, second, detail, log)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, metadata.Default(), f, opts).Render(rep))
	return buf.String()
}

func TestRender_Defaults(t *testing.T) {
	out := render(t, false, Filters{}, Options{})

	assert.Contains(t, out, "Elapsed 10s")
	assert.Contains(t, out, "rows_inserted")
	assert.Contains(t, out, "tablet:-")
	assert.Contains(t, out, "+50 rows")
	assert.Contains(t, out, "5.0 /s")
	assert.Contains(t, out, "Histograms")
	assert.Contains(t, out, "15.0")
	assert.Contains(t, out, "ysql_max_connections")
	assert.Contains(t, out, "rebooted")
	assert.Contains(t, out, "5000s -> 30s")

	assert.NotContains(t, out, "mem_tracker", "gauges are off by default")
	assert.NotContains(t, out, "Rejected samples")
	assert.NotContains(t, out, "orders")
}

func TestRender_GaugesAndDetails(t *testing.T) {
	out := render(t, true, Filters{}, Options{Details: true, Gauges: true})

	assert.Contains(t, out, "mem_tracker")
	assert.Contains(t, out, "800 B (+300 B)")
	assert.Contains(t, out, "tablet:t1")
	assert.Contains(t, out, "yugabyte.orders")
	assert.Contains(t, out, "Rejected samples")
	assert.Contains(t, out, "odd")
}

func TestRender_Filters(t *testing.T) {
	f, err := NewFilters("^n1:9000$", "rows", "")
	require.NoError(t, err)
	out := render(t, false, f, Options{Gauges: true})

	assert.Contains(t, out, "rows_inserted")
	assert.NotContains(t, out, "mem_tracker")
	assert.NotContains(t, out, "Histograms")
	assert.NotContains(t, out, "ysql_max_connections")
}

func TestRender_TableFilter(t *testing.T) {
	f, err := NewFilters("", "", "^customers$")
	require.NoError(t, err)
	out := render(t, true, f, Options{})
	assert.NotContains(t, out, "rows_inserted")

	f, err = NewFilters("", "", "^ord")
	require.NoError(t, err)
	out = render(t, true, f, Options{})
	assert.Contains(t, out, "rows_inserted")
}

func TestRender_TableFilterAppliesToHistograms(t *testing.T) {
	f, err := NewFilters("", "", "^customers$")
	require.NoError(t, err)
	out := render(t, true, f, Options{Details: true})
	assert.NotContains(t, out, "Histograms")
	assert.NotContains(t, out, "handler_latency_yb_tserver_TabletServerService_Write")

	f, err = NewFilters("", "", "^orders$")
	require.NoError(t, err)
	out = render(t, true, f, Options{Details: true})
	assert.Contains(t, out, "Histograms")
	assert.Contains(t, out, "handler_latency_yb_tserver_TabletServerService_Write")
	assert.Contains(t, out, "yugabyte.orders")
}

func renderWithMaster(t *testing.T, f Filters) string {
	t.Helper()
	first, second := snapshots()
	second.Masters = []model.Master{{
		HostnamePort:  "m1:7000",
		Timestamp:     t1,
		PermanentUUID: "u2",
		Role:          "FOLLOWER",
		RPCAddresses:  []string{"m2:7100"},
		HTTPAddresses: []string{"m2:7000"},
	}}
	log, _ := test.NewNullLogger()
	rep, err := engine.DiffSnapshots(first, second, false, log)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, nil, f, Options{}).Render(rep))
	return buf.String()
}

func TestRender_MembershipUsesHostnameFilterOnly(t *testing.T) {
	out := renderWithMaster(t, Filters{})
	assert.Contains(t, out, "u2")
	assert.Contains(t, out, "rebooted")

	f, err := NewFilters("", "rows", "")
	require.NoError(t, err)
	out = renderWithMaster(t, f)
	assert.Contains(t, out, "u2", "stat filter does not hide masters")
	assert.Contains(t, out, "rebooted", "stat filter does not hide tablet servers")

	f, err = NewFilters("^m2:", "", "")
	require.NoError(t, err)
	out = renderWithMaster(t, f)
	assert.Contains(t, out, "u2")
	assert.NotContains(t, out, "rebooted")

	f, err = NewFilters("^n1:", "", "")
	require.NoError(t, err)
	out = renderWithMaster(t, f)
	assert.NotContains(t, out, "u2")
	assert.Contains(t, out, "rebooted")
}

func TestRender_LeaderMissing(t *testing.T) {
	first, second := snapshots()
	first.Leaders = nil
	log, _ := test.NewNullLogger()
	rep, err := engine.DiffSnapshots(first, second, false, log)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, nil, Filters{}, Options{}).Render(rep))
	assert.Contains(t, buf.String(), "Masters: leader not found, skipping")
	assert.Contains(t, buf.String(), "Tablet servers: leader not found, skipping")
}

func TestNewFilters_Invalid(t *testing.T) {
	_, err := NewFilters("(", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname-match")
}

func TestFilters_Match(t *testing.T) {
	f, err := NewFilters("n1", "^rows", "orders")
	require.NoError(t, err)
	assert.True(t, f.Match("n1:9000", "rows_inserted", "orders"))
	assert.True(t, f.Match("n1:9000", "rows_inserted", ""), "rows without a table are not table-filtered")
	assert.False(t, f.Match("n2:9000", "rows_inserted", "orders"))
	assert.False(t, f.Match("n1:9000", "log_bytes", "orders"))
	assert.False(t, f.Match("n1:9000", "rows_inserted", "customers"))

	assert.True(t, f.MatchHost("n1:9000"))
	assert.False(t, f.MatchHost("n2:9000"))
	assert.True(t, Filters{}.MatchHost("anything"))
}

func TestSnapshots(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil, Filters{}, Options{})
	require.NoError(t, p.Snapshots([]snapshot.Entry{
		{Number: 0, Timestamp: t0, Comment: "before load"},
		{Number: 1, Timestamp: t1},
	}, t1.Add(time.Hour)))

	out := buf.String()
	assert.Contains(t, out, "Snapshots")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
	assert.Contains(t, out, "before load")
	assert.Contains(t, out, "1 hour ago")

	buf.Reset()
	require.NoError(t, p.Snapshots(nil, t1))
	assert.Contains(t, buf.String(), "no snapshots stored")
}
