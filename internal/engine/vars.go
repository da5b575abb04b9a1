package engine

import (
	"cmp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

// VarKey identifies a gflag on one server.
type VarKey struct {
	HostnamePort string
	Name         string
}

func compareVarKeys(a, b VarKey) int {
	return cmp.Or(cmp.Compare(a.HostnamePort, b.HostnamePort), cmp.Compare(a.Name, b.Name))
}

// VarObs is a gflag value and its origin ("Default", "Custom", ...).
type VarObs struct {
	Value string
	Type  string
}

// VarsDiff compares two gflag collections.
type VarsDiff struct {
	acc *Accumulator[VarKey, VarObs]
}

// NewVarsDiff returns an empty flag diff.
func NewVarsDiff(log logrus.FieldLogger) *VarsDiff {
	return &VarsDiff{acc: NewAccumulator[VarKey, VarObs]("vars", nil, log)}
}

// IngestFirst adds the begin flags.
func (d *VarsDiff) IngestFirst(vars []model.Var) error {
	for _, v := range vars {
		key := VarKey{HostnamePort: v.HostnamePort, Name: v.Name}
		if err := d.acc.AddFirst(key, v.Timestamp, VarObs{Value: v.Value, Type: v.Type}, false); err != nil {
			return err
		}
	}
	return nil
}

// IngestSecond adds the end flags.
func (d *VarsDiff) IngestSecond(vars []model.Var, fallback time.Time) error {
	for _, v := range vars {
		key := VarKey{HostnamePort: v.HostnamePort, Name: v.Name}
		if err := d.acc.AddSecond(key, v.Timestamp, VarObs{Value: v.Value, Type: v.Type}, false, fallback); err != nil {
			return err
		}
	}
	return nil
}

// Build closes the diff.
func (d *VarsDiff) Build() (*Result[VarKey, VarObs], error) {
	return d.acc.Build()
}

// VarLine is a gflag whose value or origin changed.
type VarLine struct {
	Key    VarKey
	First  VarObs
	Second VarObs
}

// VarLines returns flags present in both collections whose value or type
// differs. A flag seen on one side only means the server was unreachable
// for the other and is not reported.
func VarLines(r *Result[VarKey, VarObs]) []VarLine {
	entries := r.Entries(func(_ VarKey, row Row[VarObs]) bool {
		return row.InFirst && row.InSecond && row.First != row.Second
	}, compareVarKeys)

	lines := make([]VarLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, VarLine{Key: e.Key, First: e.Row.First, Second: e.Row.Second})
	}
	return lines
}
