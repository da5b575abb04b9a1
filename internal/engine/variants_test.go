package engine

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/yb-stats/internal/model"
)

func nodeSample(name, labels, kind, category string, v float64, second bool) model.NodeExporterSample {
	at := t0
	if second {
		at = t1
	}
	return model.NodeExporterSample{
		HostnamePort: "n1:9300", Timestamp: at, Name: name, Labels: labels,
		Kind: kind, Category: category, Value: v,
	}
}

func TestNodeExporterLines(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewNodeExporterDiff(log)
	require.NoError(t, d.IngestFirst([]model.NodeExporterSample{
		nodeSample("node_cpu_seconds_total", `{mode="user"}`, model.NodeKindCounter, model.CategorySummary, 100, false),
		nodeSample("node_cpu_seconds_total", `{cpu="0",mode="user"}`, model.NodeKindCounter, model.CategoryDetail, 100, false),
		nodeSample("node_load1", "", model.NodeKindGauge, model.CategorySummary, 1, false),
	}))
	require.NoError(t, d.IngestSecond([]model.NodeExporterSample{
		nodeSample("node_cpu_seconds_total", `{mode="user"}`, model.NodeKindCounter, model.CategorySummary, 120, true),
		nodeSample("node_cpu_seconds_total", `{cpu="0",mode="user"}`, model.NodeKindCounter, model.CategoryDetail, 120, true),
		nodeSample("node_load1", "", model.NodeKindGauge, model.CategorySummary, 3, true),
	}, t0))
	res, err := d.Build()
	require.NoError(t, err)

	lines := NodeExporterLines(res, false, false)
	require.Len(t, lines, 1)
	assert.Equal(t, `{mode="user"}`, lines[0].Key.Labels)
	assert.Equal(t, 20.0, lines[0].Delta)
	assert.Equal(t, 2.0, lines[0].Rate)

	lines = NodeExporterLines(res, true, true)
	require.Len(t, lines, 3)
	assert.Equal(t, `{cpu="0",mode="user"}`, lines[0].Key.Labels)
	assert.Equal(t, "node_load1", lines[2].Key.Name)
	assert.True(t, lines[2].Gauge())
	assert.Equal(t, 3.0, lines[2].Second)
	assert.Equal(t, 2.0, lines[2].Delta)
}

func TestVarLines(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewVarsDiff(log)
	v := func(host, name, value string) model.Var {
		return model.Var{HostnamePort: host, Timestamp: t0, Name: name, Value: value, Type: "Default"}
	}
	require.NoError(t, d.IngestFirst([]model.Var{
		v("n1:7000", "same", "1"),
		v("n1:7000", "changed", "1"),
		v("n1:7000", "only_first", "1"),
	}))
	require.NoError(t, d.IngestSecond([]model.Var{
		v("n1:7000", "same", "1"),
		v("n1:7000", "changed", "2"),
		v("n2:7000", "only_second", "1"),
	}, t0))
	res, err := d.Build()
	require.NoError(t, err)

	lines := VarLines(res)
	require.Len(t, lines, 1)
	assert.Equal(t, "changed", lines[0].Key.Name)
	assert.Equal(t, "1", lines[0].First.Value)
	assert.Equal(t, "2", lines[0].Second.Value)
}

func master(reporter, uuid, role string, seqno int64) model.Master {
	return model.Master{HostnamePort: reporter, Timestamp: t0, PermanentUUID: uuid, Role: role, InstanceSeqno: seqno}
}

func TestMasterLines(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewMastersDiff(log)
	leaders := []model.IsLeader{{HostnamePort: "m2:7000"}, {HostnamePort: "m1:7000", IsLeader: true}}

	require.NoError(t, d.IngestFirst([]model.Master{
		master("m1:7000", "u1", "LEADER", 1),
		master("m1:7000", "u2", "FOLLOWER", 1),
		master("m1:7000", "u3", "FOLLOWER", 1),
		master("m2:7000", "u9", "FOLLOWER", 1), // not the leader's view
	}, leaders))
	require.NoError(t, d.IngestSecond([]model.Master{
		master("m1:7000", "u1", "LEADER", 1),
		master("m1:7000", "u2", "LEADER", 2),
		master("m1:7000", "u4", "FOLLOWER", 1),
	}, leaders, t0))
	res, err := d.Build()
	require.NoError(t, err)
	require.True(t, res.Found)

	lines := MasterLines(res)
	require.Len(t, lines, 3)
	assert.Equal(t, "u2", lines[0].UUID)
	assert.Equal(t, ChangeModified, lines[0].Change)
	assert.Equal(t, []string{"role", "instance_seqno"}, lines[0].Fields)
	assert.Equal(t, "u3", lines[1].UUID)
	assert.Equal(t, ChangeRemoved, lines[1].Change)
	assert.Equal(t, "u4", lines[2].UUID)
	assert.Equal(t, ChangeAdded, lines[2].Change)
}

func TestMasterLines_NoLeader(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewMastersDiff(log)
	require.NoError(t, d.IngestFirst([]model.Master{master("m1:7000", "u1", "LEADER", 1)},
		[]model.IsLeader{{HostnamePort: "m1:7000", IsLeader: true}}))
	require.NoError(t, d.IngestSecond([]model.Master{master("m1:7000", "u1", "FOLLOWER", 1)}, nil, t0))
	res, err := d.Build()
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Zero(t, res.Rows.Len())
	assert.Empty(t, MasterLines(res))
}

func TestTabletServerLines(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewTabletServersDiff(log)
	leaders := []model.IsLeader{{HostnamePort: "m1:7000", IsLeader: true}}
	ts := func(server, status string, uptime uint64) model.TabletServer {
		return model.TabletServer{HostnamePort: "m1:7000", Timestamp: t0, Server: server, Status: status, UptimeSeconds: uptime}
	}

	require.NoError(t, d.IngestFirst([]model.TabletServer{
		ts("n1:9000", "ALIVE", 5000),
		ts("n2:9000", "ALIVE", 100),
		ts("n3:9000", "ALIVE", 100),
		ts("n4:9000", "ALIVE", 100),
	}, leaders))
	require.NoError(t, d.IngestSecond([]model.TabletServer{
		ts("n1:9000", "ALIVE", 30),
		ts("n2:9000", "ALIVE", 110),
		ts("n3:9000", "DEAD", 110),
		ts("n5:9000", "ALIVE", 10),
	}, leaders, t0))
	res, err := d.Build()
	require.NoError(t, err)

	lines := TabletServerLines(res)
	require.Len(t, lines, 4)

	assert.Equal(t, "n1:9000", lines[0].Server)
	assert.True(t, lines[0].Rebooted)
	assert.False(t, lines[0].StatusChanged)

	assert.Equal(t, "n3:9000", lines[1].Server)
	assert.True(t, lines[1].StatusChanged)
	assert.False(t, lines[1].Rebooted)

	assert.Equal(t, ChangeRemoved, lines[2].Change)
	assert.Equal(t, ChangeAdded, lines[3].Change)
}

func TestMemTrackerLines(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := NewMemTrackersDiff(log)
	mt := func(path string, current int64) model.MemTracker {
		return model.MemTracker{HostnamePort: "n1:9000", Timestamp: t0, Path: path, CurrentConsumption: current, Limit: -1}
	}
	require.NoError(t, d.IngestFirst([]model.MemTracker{mt("root", 100), mt("root->Call", 10), mt("root->Call", 5)}))
	require.NoError(t, d.IngestSecond([]model.MemTracker{mt("root", 100), mt("root->Call", 40)}, t0))
	res, err := d.Build()
	require.NoError(t, err)

	assert.Empty(t, MemTrackerLines(res, false))

	lines := MemTrackerLines(res, true)
	require.Len(t, lines, 1)
	assert.Equal(t, "root->Call", lines[0].Key.Path)
	assert.Equal(t, int64(40), lines[0].Current)
	assert.Equal(t, int64(25), lines[0].Delta)
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "added", ChangeAdded.String())
	assert.Equal(t, "removed", ChangeRemoved.String())
	assert.Equal(t, "changed", ChangeModified.String())
	assert.Equal(t, "unchanged", ChangeNone.String())
}

func TestDiffSnapshots(t *testing.T) {
	leaders := []model.IsLeader{{HostnamePort: "m1:7000", IsLeader: true}}
	first := &model.Snapshot{
		FetchedAt: t0,
		Metrics:   []model.Entity{entity("n1:9000", "server", "s", t0, model.Value{Name: "rows_inserted", Value: 100})},
		Vars:      []model.Var{{HostnamePort: "n1:9000", Name: "f", Value: "a"}},
		Leaders:   leaders,
		Masters:   []model.Master{master("m1:7000", "u1", "LEADER", 1)},
	}
	second := &model.Snapshot{
		FetchedAt: t1,
		Metrics:   []model.Entity{entity("n1:9000", "server", "s", t1, model.Value{Name: "rows_inserted", Value: 150})},
		Vars:      []model.Var{{HostnamePort: "n1:9000", Name: "f", Value: "b"}},
		Leaders:   leaders,
		Masters:   []model.Master{master("m1:7000", "u1", "LEADER", 1)},
	}

	log, hook := test.NewNullLogger()
	rep, err := DiffSnapshots(first, second, false, log)
	require.NoError(t, err)
	assert.Equal(t, t0, rep.Begin)
	assert.Equal(t, t1, rep.End)
	assert.Equal(t, 1, rep.Metrics.Values.Len())
	assert.Len(t, VarLines(rep.Vars), 1)
	assert.True(t, rep.Masters.Found)
	assert.Empty(t, MasterLines(rep.Masters))
	assert.True(t, rep.TabletServers.Found)
	assert.Empty(t, hook.AllEntries())

	_, err = DiffSnapshots(nil, second, false, log)
	assert.Error(t, err)
}

func TestDiffSnapshots_MissingLeaderLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	rep, err := DiffSnapshots(&model.Snapshot{FetchedAt: t0}, &model.Snapshot{FetchedAt: t1}, false, log)
	require.NoError(t, err)
	assert.False(t, rep.Masters.Found)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "leader not found")
}
