package engine

import (
	"cmp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

// MemKey identifies a mem-tracker on one server.
type MemKey struct {
	HostnamePort string
	Path         string
}

func compareMemKeys(a, b MemKey) int {
	return cmp.Or(cmp.Compare(a.HostnamePort, b.HostnamePort), cmp.Compare(a.Path, b.Path))
}

// MemObs holds mem-tracker sizes in bytes.
type MemObs struct {
	Current int64
	Peak    int64
	Limit   int64
}

// Trackers sharing a path are summed; limits are not additive.
func mergeMem(a, b MemObs) MemObs {
	a.Current += b.Current
	a.Peak += b.Peak
	return a
}

// MemTrackersDiff compares two mem-tracker collections.
type MemTrackersDiff struct {
	acc *Accumulator[MemKey, MemObs]
}

// NewMemTrackersDiff returns an empty mem-tracker diff.
func NewMemTrackersDiff(log logrus.FieldLogger) *MemTrackersDiff {
	return &MemTrackersDiff{acc: NewAccumulator[MemKey, MemObs]("mem_trackers", mergeMem, log)}
}

func memObs(m model.MemTracker) MemObs {
	return MemObs{Current: m.CurrentConsumption, Peak: m.PeakConsumption, Limit: m.Limit}
}

// IngestFirst adds the begin trackers.
func (d *MemTrackersDiff) IngestFirst(trackers []model.MemTracker) error {
	for _, m := range trackers {
		key := MemKey{HostnamePort: m.HostnamePort, Path: m.Path}
		if err := d.acc.AddFirst(key, m.Timestamp, memObs(m), true); err != nil {
			return err
		}
	}
	return nil
}

// IngestSecond adds the end trackers.
func (d *MemTrackersDiff) IngestSecond(trackers []model.MemTracker, fallback time.Time) error {
	for _, m := range trackers {
		key := MemKey{HostnamePort: m.HostnamePort, Path: m.Path}
		if err := d.acc.AddSecond(key, m.Timestamp, memObs(m), true, fallback); err != nil {
			return err
		}
	}
	return nil
}

// Build closes the diff.
func (d *MemTrackersDiff) Build() (*Result[MemKey, MemObs], error) {
	return d.acc.Build()
}

// MemLine is a mem-tracker whose current consumption moved.
type MemLine struct {
	Key     MemKey
	Current int64
	Delta   int64
	Peak    int64
	Limit   int64
}

// MemTrackerLines returns trackers present at the end whose consumption
// changed. Mem-trackers are gauges and follow the gauge display gate.
func MemTrackerLines(r *Result[MemKey, MemObs], gauges bool) []MemLine {
	if !gauges {
		return nil
	}
	entries := r.Entries(func(_ MemKey, row Row[MemObs]) bool {
		return row.InSecond && row.Second.Current != row.First.Current
	}, compareMemKeys)

	lines := make([]MemLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, MemLine{
			Key:     e.Key,
			Current: e.Row.Second.Current,
			Delta:   e.Row.Second.Current - e.Row.First.Current,
			Peak:    e.Row.Second.Peak,
			Limit:   e.Row.Second.Limit,
		})
	}
	return lines
}
