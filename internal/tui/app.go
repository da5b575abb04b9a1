// Package tui implements the watch mode: a live view that polls the cluster
// on an interval and shows what changed since the previous poll.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/model"
	"github.com/dm/yb-stats/internal/present"
)

// Collector takes one snapshot of the cluster.
type Collector interface {
	Collect(ctx context.Context, hosts []string, ports []int) *model.Snapshot
}

// Config controls what is polled and shown.
type Config struct {
	Hosts    []string
	Ports    []int
	Interval time.Duration
	Meta     *metadata.Table
	Filters  present.Filters
	Options  present.Options
}

var errNoData = errors.New("no host returned any data")

type connState int

const (
	stateOK connState = iota
	stateFailing
)

const minFetchTimeout = 500 * time.Millisecond

// view selects the table shown below the header.
type view int

const (
	viewMetrics view = iota
	viewLatency
)

// App is the root Bubble Tea model for watch mode.
type App struct {
	collector Collector
	cfg       Config
	log       logrus.FieldLogger

	fetching bool // a fetchCmd is in flight
	previous *model.Snapshot
	current  *model.Snapshot
	report   *engine.Report
	table    MetricTableModel
	latency  MetricTableModel
	view     view

	connState        connState
	consecutiveFails int
	lastError        error
	lastUpdated      time.Time

	width, height int
	showHelp      bool
}

// NewApp returns an App that polls c every cfg.Interval.
func NewApp(c Collector, cfg Config, log logrus.FieldLogger) *App {
	if cfg.Meta == nil {
		cfg.Meta = metadata.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		collector: c,
		cfg:       cfg,
		log:       log,
		table:     NewMetricTable(),
		latency:   NewLatencyTable(),
		fetching:  true, // Init always issues a fetch
	}
}

// Init implements tea.Model.
func (app *App) Init() tea.Cmd {
	return app.fetch()
}

// Update implements tea.Model.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height
		return app, nil

	case SnapshotMsg:
		app.fetching = false
		app.previous = app.current
		app.current = msg.Snapshot
		if msg.Report != nil {
			app.report = msg.Report
			app.refreshRows()
		}
		app.consecutiveFails = 0
		app.lastError = nil
		app.connState = stateOK
		app.lastUpdated = msg.Snapshot.FetchedAt
		return app, tickCmd(app.cfg.Interval)

	case FetchErrorMsg:
		app.fetching = false
		app.consecutiveFails++
		app.lastError = msg.Err
		app.connState = stateFailing
		return app, tickCmd(backoffDuration(app.consecutiveFails))

	case TickMsg:
		if app.fetching {
			return app, nil
		}
		app.fetching = true
		return app, app.fetch()

	case tea.KeyMsg:
		if app.active().searching {
			if msg.String() == "ctrl+c" {
				return app, tea.Quit
			}
			return app.updateTable(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return app, tea.Quit
		case key.Matches(msg, keys.Refresh):
			if app.fetching {
				return app, nil
			}
			app.fetching = true
			return app, app.fetch()
		case key.Matches(msg, keys.Help):
			app.showHelp = !app.showHelp
			return app, nil
		case key.Matches(msg, keys.Gauges):
			app.cfg.Options.Gauges = !app.cfg.Options.Gauges
			app.refreshRows()
			return app, nil
		case key.Matches(msg, keys.Details):
			app.cfg.Options.Details = !app.cfg.Options.Details
			app.rediff()
			return app, nil
		case key.Matches(msg, keys.View):
			if app.view == viewMetrics {
				app.view = viewLatency
			} else {
				app.view = viewMetrics
			}
			return app, nil
		}
	}
	return app.updateTable(msg)
}

// active returns the table of the current view.
func (app *App) active() *MetricTableModel {
	if app.view == viewLatency {
		return &app.latency
	}
	return &app.table
}

func (app *App) updateTable(msg tea.Msg) (tea.Model, tea.Cmd) {
	t := app.active()
	var cmd tea.Cmd
	*t, cmd = t.Update(msg)
	return app, cmd
}

func (app *App) refreshRows() {
	app.table.SetData(metricRows(app.report, app.cfg.Meta, app.cfg.Filters, app.cfg.Options))
	app.latency.SetData(latencyRows(app.report, app.cfg.Meta, app.cfg.Filters))
}

// rediff recomputes the report from the last two polls after the detail
// toggle changed how entities are keyed.
func (app *App) rediff() {
	if app.previous == nil || app.current == nil {
		return
	}
	rep, err := engine.DiffSnapshots(app.previous, app.current, app.cfg.Options.Details, app.log)
	if err != nil {
		app.log.WithError(err).Warn("diff failed")
		return
	}
	app.report = rep
	app.refreshRows()
}

// View implements tea.Model.
func (app *App) View() string {
	parts := []string{renderHeader(app)}
	if app.report == nil {
		parts = append(parts, StyleDim.Render("Waiting for a second poll to compare against..."))
	} else {
		parts = append(parts, app.active().render(app.width))
	}
	parts = append(parts, renderFooter(app))
	return strings.Join(parts, "\n")
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (app *App) fetch() tea.Cmd {
	return fetchCmd(app.collector, app.cfg, app.current, app.log)
}

// fetchCmd collects a snapshot and diffs it against prev, which may be nil.
// The collection is bounded by the poll interval.
func fetchCmd(c Collector, cfg Config, prev *model.Snapshot, log logrus.FieldLogger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), max(cfg.Interval, minFetchTimeout))
		defer cancel()

		snap := c.Collect(ctx, cfg.Hosts, cfg.Ports)
		if snap.Empty() {
			return FetchErrorMsg{Err: errNoData}
		}
		if prev == nil {
			return SnapshotMsg{Snapshot: snap}
		}
		rep, err := engine.DiffSnapshots(prev, snap, cfg.Options.Details, log)
		if err != nil {
			return FetchErrorMsg{Err: errors.Wrap(err, "diff")}
		}
		return SnapshotMsg{Snapshot: snap, Report: rep}
	}
}

// backoffDuration returns min(2^fails seconds, 60s).
func backoffDuration(fails int) time.Duration {
	const maxBackoff = 60 * time.Second
	if fails <= 0 {
		return time.Second
	}
	if fails >= 6 {
		return maxBackoff
	}
	return time.Duration(1<<fails) * time.Second
}
