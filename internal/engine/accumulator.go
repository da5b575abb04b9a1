package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// ErrPhase is returned when an Accumulator is fed out of order: first-phase
// input after the second phase started, or any input after Build.
var ErrPhase = errors.New("accumulator used out of phase")

type phase int

const (
	phaseFirst phase = iota
	phaseSecond
	phaseBuilt
)

func (p phase) String() string {
	switch p {
	case phaseFirst:
		return "first"
	case phaseSecond:
		return "second"
	default:
		return "built"
	}
}

// MergeFunc folds an incoming observation into an existing one for the same
// key. It is used only when the caller asks for collapsing.
type MergeFunc[V any] func(existing, incoming V) V

// Row pairs the observations of one key in the begin and end collections.
// A side that never saw the key keeps the zero V and a false In flag.
type Row[V any] struct {
	First      V
	Second     V
	FirstTime  time.Time
	SecondTime time.Time
	InFirst    bool
	InSecond   bool
}

// Elapsed is the time between the two observations.
func (r Row[V]) Elapsed() time.Duration {
	return r.SecondTime.Sub(r.FirstTime)
}

// Accumulator builds a keyed begin/end comparison in two strictly ordered
// phases. It is single use: once the first AddSecond is seen, AddFirst fails,
// and once Build is called, nothing more may be added.
type Accumulator[K comparable, V any] struct {
	name  string
	merge MergeFunc[V]
	log   logrus.FieldLogger
	rows  map[K]*Row[V]
	phase phase
}

// NewAccumulator returns an empty Accumulator. name identifies it in logs
// and errors; merge may be nil if no caller ever collapses.
func NewAccumulator[K comparable, V any](name string, merge MergeFunc[V], log logrus.FieldLogger) *Accumulator[K, V] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Accumulator[K, V]{
		name:  name,
		merge: merge,
		log:   log,
		rows:  make(map[K]*Row[V]),
	}
}

// AddFirst records v under key for the begin collection. With collapse set,
// a repeated key is merged into the existing value; without it the repeat is
// logged and the first value is kept.
func (a *Accumulator[K, V]) AddFirst(key K, at time.Time, v V, collapse bool) error {
	if a.phase != phaseFirst {
		return errors.Wrapf(ErrPhase, "%s: first-phase add during %s phase", a.name, a.phase)
	}
	row, ok := a.rows[key]
	if !ok {
		a.rows[key] = &Row[V]{First: v, FirstTime: at, InFirst: true}
		return nil
	}
	if collapse && a.merge != nil {
		row.First = a.merge(row.First, v)
		return nil
	}
	a.duplicate(key)
	return nil
}

// AddSecond records v under key for the end collection. A key that the
// begin collection never had gets fallback as its begin time.
func (a *Accumulator[K, V]) AddSecond(key K, at time.Time, v V, collapse bool, fallback time.Time) error {
	if a.phase == phaseBuilt {
		return errors.Wrapf(ErrPhase, "%s: second-phase add after build", a.name)
	}
	a.phase = phaseSecond

	row, ok := a.rows[key]
	switch {
	case !ok:
		a.rows[key] = &Row[V]{Second: v, SecondTime: at, FirstTime: fallback, InSecond: true}
	case !row.InSecond:
		row.Second = v
		row.SecondTime = at
		row.InSecond = true
	case collapse && a.merge != nil:
		row.Second = a.merge(row.Second, v)
	default:
		a.duplicate(key)
	}
	return nil
}

func (a *Accumulator[K, V]) duplicate(key K) {
	a.log.WithFields(logrus.Fields{
		"diff":  a.name,
		"phase": a.phase.String(),
		"key":   fmt.Sprintf("%+v", key),
	}).Warn("duplicate key, keeping first value")
}

// Build closes the accumulator and returns its read-only result.
func (a *Accumulator[K, V]) Build() (*Result[K, V], error) {
	if a.phase == phaseBuilt {
		return nil, errors.Wrapf(ErrPhase, "%s: already built", a.name)
	}
	a.phase = phaseBuilt

	rows := make(map[K]Row[V], len(a.rows))
	for k, r := range a.rows {
		rows[k] = *r
	}
	a.rows = nil
	return &Result[K, V]{rows: rows}, nil
}

// Entry is one key and its row.
type Entry[K comparable, V any] struct {
	Key K
	Row Row[V]
}

// Result is the immutable outcome of an Accumulator.
type Result[K comparable, V any] struct {
	rows map[K]Row[V]
}

// Get returns the row for key.
func (r *Result[K, V]) Get(key K) (Row[V], bool) {
	if r == nil {
		return Row[V]{}, false
	}
	row, ok := r.rows[key]
	return row, ok
}

// Len is the number of distinct keys.
func (r *Result[K, V]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}

// Entries returns the rows accepted by keep (all rows when keep is nil),
// ordered by cmp.
func (r *Result[K, V]) Entries(keep func(K, Row[V]) bool, cmp func(a, b K) int) []Entry[K, V] {
	if r == nil {
		return nil
	}
	out := make([]Entry[K, V], 0, len(r.rows))
	for k, row := range r.rows {
		if keep != nil && !keep(k, row) {
			continue
		}
		out = append(out, Entry[K, V]{Key: k, Row: row})
	}
	slices.SortFunc(out, func(a, b Entry[K, V]) int { return cmp(a.Key, b.Key) })
	return out
}
