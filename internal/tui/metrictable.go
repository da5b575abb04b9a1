package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/format"
	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/present"
)

// Column indices.
const (
	colHostname = iota
	colEntity
	colMetric
	colValue
	colChange
	colRate
)

// metricRow is one line of a table, pre-formatted for display and carrying
// the raw numbers used for sorting. In the latency table Value is the
// average and Change the call count.
type metricRow struct {
	Hostname string
	Entity   string
	Metric   string
	Table    string
	Value    string
	Change   string
	Rate     string

	value  float64
	delta  int64
	rate   float64 // -1 when undefined
}

// metricRows turns the value lines of rep into rows, dropping those the
// filters reject.
func metricRows(rep *engine.Report, meta *metadata.Table, f present.Filters, opts present.Options) []metricRow {
	if rep == nil || rep.Metrics == nil {
		return nil
	}
	lines := rep.Metrics.ValueLines(meta, opts.Gauges)
	out := make([]metricRow, 0, len(lines))
	for _, l := range lines {
		if !f.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		r := metricRow{
			Hostname: l.Key.HostnamePort,
			Entity:   l.Key.EntityType + ":" + l.Key.EntityID,
			Metric:   l.Key.Name,
			Table:    l.Table,
			Value:    format.Value(l.Second, l.Info),
			Change:   format.Delta(l.Delta, l.Info),
			Rate:     format.Rate(l.Rate, l.RateOK),
			value:    float64(l.Second),
			delta:    l.Delta,
			rate:     -1,
		}
		if l.Gauge() {
			r.Rate = ""
		} else if l.RateOK {
			r.rate = l.Rate
		}
		out = append(out, r)
	}
	return out
}

// latencyRows turns the histogram and statement lines of rep into rows,
// dropping those the filters reject.
func latencyRows(rep *engine.Report, meta *metadata.Table, f present.Filters) []metricRow {
	if rep == nil || rep.Metrics == nil {
		return nil
	}
	var out []metricRow
	for _, l := range rep.Metrics.CountSumLines(meta) {
		if !f.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		out = append(out, metricRow{
			Hostname: l.Key.HostnamePort,
			Entity:   l.Key.EntityType + ":" + l.Key.EntityID,
			Metric:   l.Key.Name,
			Table:    l.Table,
			Value:    strings.TrimSpace(format.Float(l.Average) + " " + l.Info.Suffix),
			Change:   format.Signed(l.CountDelta),
			Rate:     format.Rate(l.Rate, l.RateOK),
			value:    l.Average,
			delta:    l.CountDelta,
			rate:     rateOrUndefined(l.Rate, l.RateOK),
		})
	}
	for _, l := range rep.Metrics.CountSumRowsLines() {
		if !f.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		out = append(out, metricRow{
			Hostname: l.Key.HostnamePort,
			Entity:   l.Key.EntityType + ":" + l.Key.EntityID,
			Metric:   l.Key.Name,
			Table:    l.Table,
			Value:    format.Latency(l.AvgLatencyMs),
			Change:   format.Signed(l.CountDelta),
			Rate:     format.Rate(l.Rate, l.RateOK),
			value:    l.AvgLatencyMs,
			delta:    l.CountDelta,
			rate:     rateOrUndefined(l.Rate, l.RateOK),
		})
	}
	return out
}

func rateOrUndefined(r float64, ok bool) float64 {
	if !ok {
		return -1
	}
	return r
}

// sortMetricRows returns a sorted copy of rows. Ties are broken by
// hostname, entity and metric name.
func sortMetricRows(rows []metricRow, col int, desc bool) []metricRow {
	out := slices.Clone(rows)
	if col < 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b metricRow) int {
		var c int
		switch col {
		case colHostname:
			c = strings.Compare(a.Hostname, b.Hostname)
		case colEntity:
			c = strings.Compare(a.Entity, b.Entity)
		case colMetric:
			c = strings.Compare(strings.ToLower(a.Metric), strings.ToLower(b.Metric))
		case colValue:
			c = cmp.Compare(a.value, b.value)
		case colChange:
			c = cmp.Compare(a.delta, b.delta)
		case colRate:
			c = cmp.Compare(a.rate, b.rate)
		}
		if desc {
			c = -c
		}
		return cmp.Or(c,
			strings.Compare(a.Hostname, b.Hostname),
			strings.Compare(a.Entity, b.Entity),
			strings.Compare(a.Metric, b.Metric))
	})
	return out
}

// filterMetricRows keeps rows whose hostname, entity, metric or table
// contains search, case-insensitively.
func filterMetricRows(rows []metricRow, search string) []metricRow {
	if search == "" {
		return rows
	}
	lower := strings.ToLower(search)
	out := rows[:0:0]
	for _, r := range rows {
		for _, s := range []string{r.Hostname, r.Entity, r.Metric, r.Table} {
			if strings.Contains(strings.ToLower(s), lower) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// MetricTableModel is a sortable, paginated, searchable table of changes
// between the last two polls.
type MetricTableModel struct {
	tableModel
	title       string
	allRows     []metricRow
	displayRows []metricRow
}

// NewMetricTable shows value changes, sorted by rate, highest first.
func NewMetricTable() MetricTableModel {
	return newRowTable("Metrics", "Value", "Change")
}

// NewLatencyTable shows histogram and statement activity, sorted by call
// rate, highest first.
func NewLatencyTable() MetricTableModel {
	return newRowTable("Latency", "Avg", "Calls")
}

func newRowTable(title, valueTitle, changeTitle string) MetricTableModel {
	m := MetricTableModel{
		title: title,
		tableModel: newTableModel([]columnDef{
			{Title: "Hostname"},
			{Title: "Entity"},
			{Title: "Metric"},
			{Title: valueTitle, Numeric: true},
			{Title: changeTitle, Numeric: true},
			{Title: "Rate", Numeric: true},
		}),
	}
	m.sortCol = colRate
	m.sortDesc = true
	return m
}

// SetData applies the current search and sort to rows.
func (m *MetricTableModel) SetData(rows []metricRow) {
	m.allRows = rows
	m.refresh()
}

func (m *MetricTableModel) refresh() {
	m.displayRows = sortMetricRows(filterMetricRows(m.allRows, m.search), m.sortCol, m.sortDesc)
	m.clampPage(len(m.displayRows))
}

// Update delegates to the embedded tableModel and re-applies filter and
// sort when either changed.
func (m MetricTableModel) Update(msg tea.Msg) (MetricTableModel, tea.Cmd) {
	prevSort, prevDesc, prevSearch := m.sortCol, m.sortDesc, m.search

	base, cmd := m.tableModel.Update(msg)
	m.tableModel = base

	if m.sortCol != prevSort || m.sortDesc != prevDesc || m.search != prevSearch {
		m.refresh()
	} else {
		m.clampPage(len(m.displayRows))
	}
	return m, cmd
}

func (m *MetricTableModel) render(width int) string {
	hdr := m.renderTitle(pageCount(len(m.displayRows), m.pageSize))

	start, end := pageBounds(len(m.displayRows), m.page, m.pageSize)
	if start == end {
		return lipgloss.JoinVertical(lipgloss.Left, hdr, StyleDim.Render("  (no changes)"))
	}

	headers := make([]string, len(m.columns))
	for i, c := range m.columns {
		headers[i] = c.Title
		if i == m.sortCol {
			if m.sortDesc {
				headers[i] += "↓"
			} else {
				headers[i] += "↑"
			}
		}
	}

	sortCol := m.sortCol
	t := ltable.New().
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				if col == sortCol {
					return lipgloss.NewStyle().Bold(true).Foreground(colorBlue).PaddingRight(2)
				}
				return lipgloss.NewStyle().Bold(true).Foreground(colorGray).PaddingRight(2)
			}
			base := lipgloss.NewStyle().PaddingRight(2)
			if row%2 == 0 {
				base = base.Background(colorAlt)
			}
			switch col {
			case colChange:
				return base.Foreground(colorGreen)
			case colRate:
				return base.Foreground(colorCyan)
			case colValue:
				return base.Foreground(colorPurple)
			default:
				return base.Foreground(colorWhite)
			}
		}).
		BorderStyle(lipgloss.NewStyle().Foreground(colorGray)).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)
	if width > 0 {
		t = t.Width(width)
	}

	for _, r := range m.displayRows[start:end] {
		t = t.Row(r.Hostname, r.Entity, r.Metric, r.Value, r.Change, r.Rate)
	}
	return lipgloss.JoinVertical(lipgloss.Left, hdr, t.String())
}

// renderTitle shows the live search box while searching, otherwise the
// active filter or the key hints.
func (m *MetricTableModel) renderTitle(pages int) string {
	pageInfo := fmt.Sprintf("Page %d/%d", m.page+1, pages)
	var right string
	switch {
	case m.searching:
		right = "Search: " + m.input.View()
	case m.search != "":
		right = fmt.Sprintf("filter=%q  %s", m.search, pageInfo)
	default:
		right = "[/: search]  [1-6: sort]  [←→: page]  " + pageInfo
	}
	return StyleDim.Render(fmt.Sprintf("%s (%d)  %s", m.title, len(m.displayRows), right))
}
