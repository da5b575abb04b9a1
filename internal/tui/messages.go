package tui

import (
	"time"

	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/model"
)

// SnapshotMsg delivers a finished poll. Report is nil for the first poll,
// which has nothing to be diffed against.
type SnapshotMsg struct {
	Snapshot *model.Snapshot
	Report   *engine.Report
}

// FetchErrorMsg signals a poll that produced nothing usable.
type FetchErrorMsg struct{ Err error }

// TickMsg triggers the next scheduled poll.
type TickMsg time.Time
