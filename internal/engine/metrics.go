package engine

import (
	"cmp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/model"
)

// CollapsedID replaces the entity id of summable entities when detail mode
// is off, so every table, tablet or stream on a host shares one row.
const CollapsedID = "-"

// MetricKey correlates one sample across the two collections.
type MetricKey struct {
	HostnamePort string
	EntityType   string
	EntityID     string
	Name         string
}

func compareMetricKeys(a, b MetricKey) int {
	return cmp.Or(
		cmp.Compare(a.HostnamePort, b.HostnamePort),
		cmp.Compare(a.EntityType, b.EntityType),
		cmp.Compare(a.EntityID, b.EntityID),
		cmp.Compare(a.Name, b.Name),
	)
}

// ValueObs is an accumulated Value sample plus its display attributes.
// Collapsed rows carry no namespace or table.
type ValueObs struct {
	Value     int64
	Namespace string
	Table     string
}

// CountSumObs accumulates the diffable part of a CountSum sample. Like
// ValueObs, collapsed rows carry no namespace or table.
type CountSumObs struct {
	Count     int64
	Sum       int64
	Namespace string
	Table     string
}

// CountSumRowsObs accumulates a CountSumRows sample.
type CountSumRowsObs struct {
	Count     int64
	Sum       int64
	Rows      int64
	Namespace string
	Table     string
}

func mergeValue(a, b ValueObs) ValueObs {
	a.Value += b.Value
	return a
}

func mergeCountSum(a, b CountSumObs) CountSumObs {
	a.Count += b.Count
	a.Sum += b.Sum
	return a
}

// RejectedSample is a sample kept out of diff arithmetic.
type RejectedSample struct {
	HostnamePort string
	EntityType   string
	EntityID     string
	Second       bool
	Sample       model.Sample
}

// MetricsDiff compares two /metrics collections.
type MetricsDiff struct {
	detail       bool
	values       *Accumulator[MetricKey, ValueObs]
	countSums    *Accumulator[MetricKey, CountSumObs]
	countSumRows *Accumulator[MetricKey, CountSumRowsObs]
	rejected     []RejectedSample
}

// NewMetricsDiff returns an empty diff. With detail set, summable entities
// keep their own ids instead of being summed per host.
func NewMetricsDiff(detail bool, log logrus.FieldLogger) *MetricsDiff {
	return &MetricsDiff{
		detail:       detail,
		values:       NewAccumulator[MetricKey, ValueObs]("metrics.value", mergeValue, log),
		countSums:    NewAccumulator[MetricKey, CountSumObs]("metrics.countsum", mergeCountSum, log),
		countSumRows: NewAccumulator[MetricKey, CountSumRowsObs]("metrics.countsumrows", nil, log),
	}
}

// IngestFirst adds the begin collection.
func (d *MetricsDiff) IngestFirst(entities []model.Entity) error {
	return d.ingest(entities, false, time.Time{})
}

// IngestSecond adds the end collection. fallback is the begin time given to
// keys the begin collection did not have.
func (d *MetricsDiff) IngestSecond(entities []model.Entity, fallback time.Time) error {
	return d.ingest(entities, true, fallback)
}

func (d *MetricsDiff) ingest(entities []model.Entity, second bool, fallback time.Time) error {
	for _, e := range entities {
		collapse := !d.detail && model.IsSummable(e.Type)
		id := e.ID
		if collapse {
			id = CollapsedID
		}

		for _, s := range e.Samples {
			key := MetricKey{HostnamePort: e.HostnamePort, EntityType: e.Type, EntityID: id, Name: s.MetricName()}

			var err error
			switch s := s.(type) {
			case model.Value:
				obs := ValueObs{Value: s.Value}
				if !collapse {
					obs.Namespace = e.Attributes.NamespaceName
					obs.Table = e.Attributes.TableName
				}
				err = add(d.values, second, key, e.Timestamp, obs, collapse, fallback)
			case model.CountSum:
				obs := CountSumObs{Count: s.TotalCount, Sum: s.TotalSum}
				if !collapse {
					obs.Namespace = e.Attributes.NamespaceName
					obs.Table = e.Attributes.TableName
				}
				err = add(d.countSums, second, key, e.Timestamp, obs, collapse, fallback)
			case model.CountSumRows:
				// Never collapsed.
				key.EntityID = e.ID
				obs := CountSumRowsObs{
					Count:     s.Count,
					Sum:       s.Sum,
					Rows:      s.Rows,
					Namespace: e.Attributes.NamespaceName,
					Table:     e.Attributes.TableName,
				}
				err = add(d.countSumRows, second, key, e.Timestamp, obs, false, fallback)
			case model.RejectedU64, model.RejectedBoolean:
				d.rejected = append(d.rejected, RejectedSample{
					HostnamePort: e.HostnamePort,
					EntityType:   e.Type,
					EntityID:     e.ID,
					Second:       second,
					Sample:       s,
				})
			default:
				err = errors.AssertionFailedf("unhandled sample type %T", s)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func add[K comparable, V any](a *Accumulator[K, V], second bool, key K, at time.Time, v V, collapse bool, fallback time.Time) error {
	if second {
		return a.AddSecond(key, at, v, collapse, fallback)
	}
	return a.AddFirst(key, at, v, collapse)
}

// MetricsResult is the read-only outcome of a MetricsDiff, one result per
// sample shape.
type MetricsResult struct {
	Values       *Result[MetricKey, ValueObs]
	CountSums    *Result[MetricKey, CountSumObs]
	CountSumRows *Result[MetricKey, CountSumRowsObs]
	Rejected     []RejectedSample
}

// Build closes the diff.
func (d *MetricsDiff) Build() (*MetricsResult, error) {
	values, err := d.values.Build()
	if err != nil {
		return nil, err
	}
	countSums, err := d.countSums.Build()
	if err != nil {
		return nil, err
	}
	countSumRows, err := d.countSumRows.Build()
	if err != nil {
		return nil, err
	}
	return &MetricsResult{
		Values:       values,
		CountSums:    countSums,
		CountSumRows: countSumRows,
		Rejected:     d.rejected,
	}, nil
}

// ValueLine is a displayable Value row.
type ValueLine struct {
	Key       MetricKey
	Namespace string
	Table     string
	Info      metadata.Info
	First     int64
	Second    int64
	Delta     int64
	Rate      float64
	RateOK    bool
}

// Gauge reports whether the line is rendered as a gauge.
func (l ValueLine) Gauge() bool { return l.Info.Kind.IsGauge() }

// ValueLines returns the Value rows worth showing. Anything not looked up as
// a gauge is a counter: shown when the end value is positive and moved.
// Gauges are shown only with gauges set, when present at the end and moved.
func (r *MetricsResult) ValueLines(meta *metadata.Table, gauges bool) []ValueLine {
	entries := r.Values.Entries(func(k MetricKey, row Row[ValueObs]) bool {
		delta := row.Second.Value - row.First.Value
		if meta.Lookup(k.Name).Kind.IsGauge() {
			return gauges && row.InSecond && delta != 0
		}
		return row.Second.Value > 0 && delta != 0
	}, compareMetricKeys)

	lines := make([]ValueLine, 0, len(entries))
	for _, e := range entries {
		delta := e.Row.Second.Value - e.Row.First.Value
		rate, ok := ratePerSecond(float64(delta), e.Row.Elapsed())
		obs := e.Row.Second
		if !e.Row.InSecond {
			obs = e.Row.First
		}
		lines = append(lines, ValueLine{
			Key:       e.Key,
			Namespace: obs.Namespace,
			Table:     obs.Table,
			Info:      meta.Lookup(e.Key.Name),
			First:     e.Row.First.Value,
			Second:    e.Row.Second.Value,
			Delta:     delta,
			Rate:      rate,
			RateOK:    ok,
		})
	}
	return lines
}

// CountSumLine is a displayable CountSum row.
type CountSumLine struct {
	Key        MetricKey
	Namespace  string
	Table      string
	Info       metadata.Info
	CountDelta int64
	SumDelta   int64
	Average    float64
	Rate       float64
	RateOK     bool
}

// CountSumLines returns CountSum rows whose end count is positive and moved.
// Average is the sum delta over the count delta.
func (r *MetricsResult) CountSumLines(meta *metadata.Table) []CountSumLine {
	entries := r.CountSums.Entries(func(_ MetricKey, row Row[CountSumObs]) bool {
		return row.Second.Count > 0 && row.Second.Count != row.First.Count
	}, compareMetricKeys)

	lines := make([]CountSumLine, 0, len(entries))
	for _, e := range entries {
		countDelta := e.Row.Second.Count - e.Row.First.Count
		sumDelta := e.Row.Second.Sum - e.Row.First.Sum
		rate, ok := ratePerSecond(float64(countDelta), e.Row.Elapsed())
		obs := e.Row.Second
		if !e.Row.InSecond {
			obs = e.Row.First
		}
		lines = append(lines, CountSumLine{
			Key:        e.Key,
			Namespace:  obs.Namespace,
			Table:      obs.Table,
			Info:       meta.Lookup(e.Key.Name),
			CountDelta: countDelta,
			SumDelta:   sumDelta,
			Average:    safeDivide(float64(sumDelta), float64(countDelta)),
			Rate:       rate,
			RateOK:     ok,
		})
	}
	return lines
}

// CountSumRowsLine is a displayable CountSumRows row. Latencies are in
// milliseconds.
type CountSumRowsLine struct {
	Key            MetricKey
	Namespace      string
	Table          string
	CountDelta     int64
	AvgLatencyMs   float64
	TotalLatencyMs float64
	AvgRows        float64
	TotalRows      int64
	Rate           float64
	RateOK         bool
}

// CountSumRowsLines returns CountSumRows rows whose count moved.
func (r *MetricsResult) CountSumRowsLines() []CountSumRowsLine {
	entries := r.CountSumRows.Entries(func(_ MetricKey, row Row[CountSumRowsObs]) bool {
		return row.Second.Count != row.First.Count
	}, compareMetricKeys)

	lines := make([]CountSumRowsLine, 0, len(entries))
	for _, e := range entries {
		countDelta := e.Row.Second.Count - e.Row.First.Count
		sumDelta := e.Row.Second.Sum - e.Row.First.Sum
		rowsDelta := e.Row.Second.Rows - e.Row.First.Rows
		rate, ok := ratePerSecond(float64(countDelta), e.Row.Elapsed())
		obs := e.Row.Second
		if !e.Row.InSecond {
			obs = e.Row.First
		}
		lines = append(lines, CountSumRowsLine{
			Key:            e.Key,
			Namespace:      obs.Namespace,
			Table:          obs.Table,
			CountDelta:     countDelta,
			AvgLatencyMs:   safeDivide(microsToMillis(sumDelta), float64(countDelta)),
			TotalLatencyMs: microsToMillis(sumDelta),
			AvgRows:        safeDivide(float64(rowsDelta), float64(countDelta)),
			TotalRows:      rowsDelta,
			Rate:           rate,
			RateOK:         ok,
		})
	}
	return lines
}
