package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

// Change classifies a membership row.
type Change int

const (
	ChangeNone Change = iota
	ChangeAdded
	ChangeRemoved
	ChangeModified
)

func (c Change) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "changed"
	default:
		return "unchanged"
	}
}

func classify[V any](row Row[V]) Change {
	switch {
	case row.InFirst && !row.InSecond:
		return ChangeRemoved
	case !row.InFirst && row.InSecond:
		return ChangeAdded
	default:
		return ChangeModified
	}
}

// LeaderDiff compares records that only the master leader reports
// authoritatively. Each side keeps only the records whose HostnamePort is
// that side's leader; a side without a leader contributes nothing.
type LeaderDiff[V any] struct {
	acc    *Accumulator[string, V]
	key    func(V) string
	source func(V) string
	at     func(V) time.Time
	log    logrus.FieldLogger
	found  [2]bool
}

func newLeaderDiff[V any](name string, key, source func(V) string, at func(V) time.Time, log logrus.FieldLogger) *LeaderDiff[V] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LeaderDiff[V]{
		acc:    NewAccumulator[string, V](name, nil, log),
		key:    key,
		source: source,
		at:     at,
		log:    log,
	}
}

// NewMastersDiff keys masters by permanent UUID.
func NewMastersDiff(log logrus.FieldLogger) *LeaderDiff[model.Master] {
	return newLeaderDiff("masters",
		func(m model.Master) string { return m.PermanentUUID },
		func(m model.Master) string { return m.HostnamePort },
		func(m model.Master) time.Time { return m.Timestamp },
		log)
}

// NewTabletServersDiff keys tablet servers by their own hostname:port.
func NewTabletServersDiff(log logrus.FieldLogger) *LeaderDiff[model.TabletServer] {
	return newLeaderDiff("tablet_servers",
		func(t model.TabletServer) string { return t.Server },
		func(t model.TabletServer) string { return t.HostnamePort },
		func(t model.TabletServer) time.Time { return t.Timestamp },
		log)
}

func (d *LeaderDiff[V]) leaderRecords(records []V, leaders []model.IsLeader) ([]V, bool) {
	leader, ok := model.FindLeader(leaders)
	if !ok {
		return nil, false
	}
	var out []V
	for _, r := range records {
		if d.source(r) == leader {
			out = append(out, r)
		}
	}
	return out, true
}

// IngestFirst adds the begin records reported by the begin leader.
func (d *LeaderDiff[V]) IngestFirst(records []V, leaders []model.IsLeader) error {
	rs, ok := d.leaderRecords(records, leaders)
	d.found[0] = ok
	for _, r := range rs {
		if err := d.acc.AddFirst(d.key(r), d.at(r), r, false); err != nil {
			return err
		}
	}
	return nil
}

// IngestSecond adds the end records reported by the end leader.
func (d *LeaderDiff[V]) IngestSecond(records []V, leaders []model.IsLeader, fallback time.Time) error {
	rs, ok := d.leaderRecords(records, leaders)
	d.found[1] = ok
	for _, r := range rs {
		if err := d.acc.AddSecond(d.key(r), d.at(r), r, false, fallback); err != nil {
			return err
		}
	}
	return nil
}

// LeaderResult is the outcome of a LeaderDiff. Found is false when either
// collection had no master leader, in which case Rows is empty.
type LeaderResult[V any] struct {
	Found bool
	Rows  *Result[string, V]
}

// Build closes the diff.
func (d *LeaderDiff[V]) Build() (*LeaderResult[V], error) {
	rows, err := d.acc.Build()
	if err != nil {
		return nil, err
	}
	found := d.found[0] && d.found[1]
	if !found {
		rows = &Result[string, V]{rows: map[string]Row[V]{}}
	}
	return &LeaderResult[V]{Found: found, Rows: rows}, nil
}

// MasterLine is a master that was added, removed or changed. Fields names
// the attributes that differ for ChangeModified.
type MasterLine struct {
	UUID   string
	Change Change
	First  model.Master
	Second model.Master
	Fields []string
}

// MasterLines drops masters that are present and identical on both sides.
func MasterLines(r *LeaderResult[model.Master]) []MasterLine {
	if r == nil || !r.Found {
		return nil
	}
	var lines []MasterLine
	for _, e := range r.Rows.Entries(nil, cmp.Compare[string]) {
		line := MasterLine{UUID: e.Key, Change: classify(e.Row), First: e.Row.First, Second: e.Row.Second}
		if line.Change == ChangeModified {
			line.Fields = masterChanges(e.Row.First, e.Row.Second)
			if len(line.Fields) == 0 {
				continue
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func masterChanges(a, b model.Master) []string {
	var fields []string
	check := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	check("role", a.Role != b.Role)
	check("placement_cloud", a.Cloud != b.Cloud)
	check("placement_region", a.Region != b.Region)
	check("placement_zone", a.Zone != b.Zone)
	check("placement_uuid", a.PlacementUUID != b.PlacementUUID)
	check("private_rpc_addresses", !slices.Equal(a.RPCAddresses, b.RPCAddresses))
	check("http_addresses", !slices.Equal(a.HTTPAddresses, b.HTTPAddresses))
	check("instance_seqno", a.InstanceSeqno != b.InstanceSeqno)
	check("start_time_us", a.StartTimeUs != b.StartTimeUs)
	check("error", a.Error != b.Error)
	return fields
}

// TabletServerLine is a tablet server that was added, removed, changed
// status or restarted.
type TabletServerLine struct {
	Server        string
	Change        Change
	First         model.TabletServer
	Second        model.TabletServer
	StatusChanged bool
	Rebooted      bool
}

// TabletServerLines reports membership and status changes. An uptime that
// went down between the collections is a reboot.
func TabletServerLines(r *LeaderResult[model.TabletServer]) []TabletServerLine {
	if r == nil || !r.Found {
		return nil
	}
	var lines []TabletServerLine
	for _, e := range r.Rows.Entries(nil, cmp.Compare[string]) {
		line := TabletServerLine{Server: e.Key, Change: classify(e.Row), First: e.Row.First, Second: e.Row.Second}
		if line.Change == ChangeModified {
			line.StatusChanged = e.Row.First.Status != e.Row.Second.Status
			line.Rebooted = e.Row.Second.UptimeSeconds < e.Row.First.UptimeSeconds
			if !line.StatusChanged && !line.Rebooted {
				continue
			}
		}
		lines = append(lines, line)
	}
	return lines
}
