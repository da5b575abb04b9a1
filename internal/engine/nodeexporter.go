package engine

import (
	"cmp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

// NodeKey identifies a node_exporter sample.
type NodeKey struct {
	HostnamePort string
	Name         string
	Labels       string
}

func compareNodeKeys(a, b NodeKey) int {
	return cmp.Or(
		cmp.Compare(a.HostnamePort, b.HostnamePort),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Labels, b.Labels),
	)
}

// NodeObs is one node_exporter observation.
type NodeObs struct {
	Value    float64
	Kind     string
	Category string
}

// NodeExporterDiff compares two node_exporter collections. Per-core
// aggregation already happened at parse time, so keys never collapse.
type NodeExporterDiff struct {
	acc *Accumulator[NodeKey, NodeObs]
}

// NewNodeExporterDiff returns an empty node-exporter diff.
func NewNodeExporterDiff(log logrus.FieldLogger) *NodeExporterDiff {
	return &NodeExporterDiff{acc: NewAccumulator[NodeKey, NodeObs]("node_exporter", nil, log)}
}

func nodeKey(s model.NodeExporterSample) NodeKey {
	return NodeKey{HostnamePort: s.HostnamePort, Name: s.Name, Labels: s.Labels}
}

func nodeObs(s model.NodeExporterSample) NodeObs {
	return NodeObs{Value: s.Value, Kind: s.Kind, Category: s.Category}
}

// IngestFirst adds the begin samples.
func (d *NodeExporterDiff) IngestFirst(samples []model.NodeExporterSample) error {
	for _, s := range samples {
		if err := d.acc.AddFirst(nodeKey(s), s.Timestamp, nodeObs(s), false); err != nil {
			return err
		}
	}
	return nil
}

// IngestSecond adds the end samples.
func (d *NodeExporterDiff) IngestSecond(samples []model.NodeExporterSample, fallback time.Time) error {
	for _, s := range samples {
		if err := d.acc.AddSecond(nodeKey(s), s.Timestamp, nodeObs(s), false, fallback); err != nil {
			return err
		}
	}
	return nil
}

// Build closes the diff.
func (d *NodeExporterDiff) Build() (*Result[NodeKey, NodeObs], error) {
	return d.acc.Build()
}

// NodeLine is a displayable node_exporter row.
type NodeLine struct {
	Key      NodeKey
	Kind     string
	Category string
	Second   float64
	Delta    float64
	Rate     float64
	RateOK   bool
}

// Gauge reports whether the line is rendered as a gauge.
func (l NodeLine) Gauge() bool { return l.Kind == model.NodeKindGauge }

// NodeExporterLines applies the same counter/gauge policy as ValueLines.
// Per-core detail samples are shown only with details set.
func NodeExporterLines(r *Result[NodeKey, NodeObs], details, gauges bool) []NodeLine {
	entries := r.Entries(func(_ NodeKey, row Row[NodeObs]) bool {
		obs := row.Second
		if !row.InSecond {
			obs = row.First
		}
		if obs.Category == model.CategoryDetail && !details {
			return false
		}
		delta := row.Second.Value - row.First.Value
		if obs.Kind == model.NodeKindGauge {
			return gauges && row.InSecond && delta != 0
		}
		return row.Second.Value > 0 && delta != 0
	}, compareNodeKeys)

	lines := make([]NodeLine, 0, len(entries))
	for _, e := range entries {
		delta := e.Row.Second.Value - e.Row.First.Value
		rate, ok := ratePerSecond(delta, e.Row.Elapsed())
		lines = append(lines, NodeLine{
			Key:      e.Key,
			Kind:     e.Row.Second.Kind,
			Category: e.Row.Second.Category,
			Second:   e.Row.Second.Value,
			Delta:    delta,
			Rate:     rate,
			RateOK:   ok,
		})
	}
	return lines
}
