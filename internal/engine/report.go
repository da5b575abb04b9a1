package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

// Report holds the built diff of every source between two snapshots.
type Report struct {
	Begin         time.Time
	End           time.Time
	Metrics       *MetricsResult
	NodeExporter  *Result[NodeKey, NodeObs]
	Vars          *Result[VarKey, VarObs]
	Masters       *LeaderResult[model.Master]
	TabletServers *LeaderResult[model.TabletServer]
	MemTrackers   *Result[MemKey, MemObs]
}

// DiffSnapshots runs every diff variant over first and second. detail keeps
// summable entities apart instead of summing them per host. Keys that only
// appear in second take first.FetchedAt as their begin time.
func DiffSnapshots(first, second *model.Snapshot, detail bool, log logrus.FieldLogger) (*Report, error) {
	if first == nil || second == nil {
		return nil, errors.New("both snapshots are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	fallback := first.FetchedAt
	rep := &Report{Begin: first.FetchedAt, End: second.FetchedAt}

	metrics := NewMetricsDiff(detail, log)
	if err := metrics.IngestFirst(first.Metrics); err != nil {
		return nil, err
	}
	if err := metrics.IngestSecond(second.Metrics, fallback); err != nil {
		return nil, err
	}
	var err error
	if rep.Metrics, err = metrics.Build(); err != nil {
		return nil, err
	}

	node := NewNodeExporterDiff(log)
	if err := node.IngestFirst(first.NodeExporter); err != nil {
		return nil, err
	}
	if err := node.IngestSecond(second.NodeExporter, fallback); err != nil {
		return nil, err
	}
	if rep.NodeExporter, err = node.Build(); err != nil {
		return nil, err
	}

	vars := NewVarsDiff(log)
	if err := vars.IngestFirst(first.Vars); err != nil {
		return nil, err
	}
	if err := vars.IngestSecond(second.Vars, fallback); err != nil {
		return nil, err
	}
	if rep.Vars, err = vars.Build(); err != nil {
		return nil, err
	}

	masters := NewMastersDiff(log)
	if err := masters.IngestFirst(first.Masters, first.Leaders); err != nil {
		return nil, err
	}
	if err := masters.IngestSecond(second.Masters, second.Leaders, fallback); err != nil {
		return nil, err
	}
	if rep.Masters, err = masters.Build(); err != nil {
		return nil, err
	}

	tservers := NewTabletServersDiff(log)
	if err := tservers.IngestFirst(first.TabletServers, first.Leaders); err != nil {
		return nil, err
	}
	if err := tservers.IngestSecond(second.TabletServers, second.Leaders, fallback); err != nil {
		return nil, err
	}
	if rep.TabletServers, err = tservers.Build(); err != nil {
		return nil, err
	}
	if !rep.Masters.Found {
		log.Info("master leader not found, skipping masters and tablet servers diff")
	}

	mem := NewMemTrackersDiff(log)
	if err := mem.IngestFirst(first.MemTrackers); err != nil {
		return nil, err
	}
	if err := mem.IngestSecond(second.MemTrackers, fallback); err != nil {
		return nil, err
	}
	if rep.MemTrackers, err = mem.Build(); err != nil {
		return nil, err
	}

	return rep, nil
}
