package present

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/format"
	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/model"
	"github.com/dm/yb-stats/internal/snapshot"
)

// Options are the display toggles.
type Options struct {
	Details bool
	Gauges  bool
}

// Presenter writes diff reports to w. Colors are only emitted when w is a
// terminal.
type Presenter struct {
	w       io.Writer
	r       *lipgloss.Renderer
	meta    *metadata.Table
	filters Filters
	opts    Options
}

// New returns a Presenter writing to w. A nil meta uses metadata.Default.
func New(w io.Writer, meta *metadata.Table, filters Filters, opts Options) *Presenter {
	if meta == nil {
		meta = metadata.Default()
	}
	return &Presenter{w: w, r: lipgloss.NewRenderer(w), meta: meta, filters: filters, opts: opts}
}

// Render writes every non-empty section of rep.
func (p *Presenter) Render(rep *engine.Report) error {
	title := p.r.NewStyle().Bold(true)
	if _, err := fmt.Fprintln(p.w, title.Render(fmt.Sprintf("Begin %s  End %s  Elapsed %s",
		rep.Begin.Format(time.RFC3339), rep.End.Format(time.RFC3339), rep.End.Sub(rep.Begin).Round(time.Millisecond)))); err != nil {
		return err
	}

	sections := []func(*engine.Report) error{
		p.values,
		p.countSums,
		p.countSumRows,
		p.nodeExporter,
		p.memTrackers,
		p.vars,
		p.masters,
		p.tabletServers,
		p.rejected,
	}
	for _, s := range sections {
		if err := s(rep); err != nil {
			return err
		}
	}
	return nil
}

// Snapshots lists stored snapshots with their age relative to now.
func (p *Presenter) Snapshots(entries []snapshot.Entry, now time.Time) error {
	if len(entries) == 0 {
		return p.notice("no snapshots stored")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Number),
			e.Timestamp.Format(time.RFC3339),
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			e.Comment,
		})
	}
	return p.section("Snapshots", []string{"Number", "Timestamp", "Age", "Comment"}, rows)
}

func entityLabel(k engine.MetricKey) string {
	return k.EntityType + ":" + k.EntityID
}

func (p *Presenter) values(rep *engine.Report) error {
	var rows [][]string
	for _, l := range rep.Metrics.ValueLines(p.meta, p.opts.Gauges) {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		var change, rate string
		if l.Gauge() {
			change = format.Value(l.Second, l.Info) + " (" + format.Delta(l.Delta, l.Info) + ")"
		} else {
			change = format.Delta(l.Delta, l.Info)
			rate = format.Rate(l.Rate, l.RateOK)
		}
		row := []string{l.Key.HostnamePort, entityLabel(l.Key)}
		if p.opts.Details {
			row = append(row, tableLabel(l.Namespace, l.Table))
		}
		rows = append(rows, append(row, l.Key.Name, change, rate))
	}
	headers := []string{"Hostname", "Entity"}
	if p.opts.Details {
		headers = append(headers, "Table")
	}
	return p.section("Metrics", append(headers, "Metric", "Change", "Rate"), rows)
}

func tableLabel(namespace, table string) string {
	if table == "" {
		return ""
	}
	if namespace == "" {
		return table
	}
	return namespace + "." + table
}

func (p *Presenter) countSums(rep *engine.Report) error {
	var rows [][]string
	for _, l := range rep.Metrics.CountSumLines(p.meta) {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		row := []string{l.Key.HostnamePort, entityLabel(l.Key)}
		if p.opts.Details {
			row = append(row, tableLabel(l.Namespace, l.Table))
		}
		rows = append(rows, append(row,
			l.Key.Name,
			format.Number(l.CountDelta),
			format.Rate(l.Rate, l.RateOK),
			format.Float(l.Average)+" "+l.Info.Suffix,
			format.Number(l.SumDelta)+" "+l.Info.Suffix,
		))
	}
	headers := []string{"Hostname", "Entity"}
	if p.opts.Details {
		headers = append(headers, "Table")
	}
	return p.section("Histograms", append(headers, "Metric", "Count", "Rate", "Avg", "Sum"), rows)
}

func (p *Presenter) countSumRows(rep *engine.Report) error {
	var rows [][]string
	for _, l := range rep.Metrics.CountSumRowsLines() {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Name, l.Table) {
			continue
		}
		row := []string{l.Key.HostnamePort}
		if p.opts.Details {
			row = append(row, tableLabel(l.Namespace, l.Table))
		}
		rows = append(rows, append(row,
			l.Key.Name,
			format.Number(l.CountDelta),
			format.Rate(l.Rate, l.RateOK),
			format.Latency(l.AvgLatencyMs),
			format.Latency(l.TotalLatencyMs),
			format.Float(l.AvgRows),
			format.Number(l.TotalRows),
		))
	}
	headers := []string{"Hostname"}
	if p.opts.Details {
		headers = append(headers, "Table")
	}
	return p.section("Statements", append(headers, "Statement", "Calls", "Rate", "Avg time", "Total time", "Avg rows", "Rows"), rows)
}

func (p *Presenter) nodeExporter(rep *engine.Report) error {
	var rows [][]string
	for _, l := range engine.NodeExporterLines(rep.NodeExporter, p.opts.Details, p.opts.Gauges) {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Name, "") {
			continue
		}
		var change, rate string
		if l.Gauge() {
			change = format.Float(l.Second) + " (" + signedFloat(l.Delta) + ")"
		} else {
			change = signedFloat(l.Delta)
			rate = format.Rate(l.Rate, l.RateOK)
		}
		rows = append(rows, []string{l.Key.HostnamePort, l.Key.Name, l.Key.Labels, change, rate})
	}
	return p.section("Node exporter", []string{"Hostname", "Metric", "Labels", "Change", "Rate"}, rows)
}

func signedFloat(f float64) string {
	if f > 0 {
		return "+" + format.Float(f)
	}
	return format.Float(f)
}

func (p *Presenter) memTrackers(rep *engine.Report) error {
	var rows [][]string
	for _, l := range engine.MemTrackerLines(rep.MemTrackers, p.opts.Gauges) {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Path, "") {
			continue
		}
		limit := "none"
		if l.Limit >= 0 {
			limit = format.Bytes(l.Limit)
		}
		rows = append(rows, []string{
			l.Key.HostnamePort,
			l.Key.Path,
			format.Bytes(l.Current) + " (" + format.SignedBytes(l.Delta) + ")",
			format.Bytes(l.Peak),
			limit,
		})
	}
	return p.section("Mem trackers", []string{"Hostname", "Tracker", "Current", "Peak", "Limit"}, rows)
}

func (p *Presenter) vars(rep *engine.Report) error {
	var rows [][]string
	for _, l := range engine.VarLines(rep.Vars) {
		if !p.filters.Match(l.Key.HostnamePort, l.Key.Name, "") {
			continue
		}
		rows = append(rows, []string{l.Key.HostnamePort, l.Key.Name, l.First.Value, l.Second.Value, l.Second.Type})
	}
	return p.section("Flags", []string{"Hostname", "Flag", "Old", "New", "Type"}, rows)
}

func (p *Presenter) masters(rep *engine.Report) error {
	if !rep.Masters.Found {
		return p.notice("Masters: leader not found, skipping")
	}
	var rows [][]string
	for _, l := range engine.MasterLines(rep.Masters) {
		if !p.matchMaster(l) {
			continue
		}
		var detail string
		switch l.Change {
		case engine.ChangeAdded:
			detail = describeMaster(l.Second)
		case engine.ChangeRemoved:
			detail = describeMaster(l.First)
		default:
			detail = masterFieldChanges(l)
		}
		rows = append(rows, []string{l.UUID, l.Change.String(), detail})
	}
	return p.section("Masters", []string{"UUID", "Change", "Detail"}, rows)
}

// matchMaster passes a master when any of its HTTP or RPC addresses, on
// either side, passes the hostname filter.
func (p *Presenter) matchMaster(l engine.MasterLine) bool {
	if p.filters.Hostname == nil {
		return true
	}
	for _, m := range []model.Master{l.First, l.Second} {
		for _, addr := range slices.Concat(m.HTTPAddresses, m.RPCAddresses) {
			if p.filters.MatchHost(addr) {
				return true
			}
		}
	}
	return false
}

func describeMaster(m model.Master) string {
	return fmt.Sprintf("%s %s %s.%s.%s", m.Role, strings.Join(m.RPCAddresses, ","), m.Cloud, m.Region, m.Zone)
}

func masterFieldChanges(l engine.MasterLine) string {
	parts := make([]string, 0, len(l.Fields))
	for _, f := range l.Fields {
		parts = append(parts, f+": "+masterField(l.First, f)+" -> "+masterField(l.Second, f))
	}
	return strings.Join(parts, "; ")
}

func masterField(m model.Master, field string) string {
	switch field {
	case "role":
		return m.Role
	case "placement_cloud":
		return m.Cloud
	case "placement_region":
		return m.Region
	case "placement_zone":
		return m.Zone
	case "placement_uuid":
		return m.PlacementUUID
	case "private_rpc_addresses":
		return strings.Join(m.RPCAddresses, ",")
	case "http_addresses":
		return strings.Join(m.HTTPAddresses, ",")
	case "instance_seqno":
		return strconv.FormatInt(m.InstanceSeqno, 10)
	case "start_time_us":
		return strconv.FormatInt(m.StartTimeUs, 10)
	case "error":
		return m.Error
	default:
		return ""
	}
}

func (p *Presenter) tabletServers(rep *engine.Report) error {
	if !rep.TabletServers.Found {
		return p.notice("Tablet servers: leader not found, skipping")
	}
	var rows [][]string
	for _, l := range engine.TabletServerLines(rep.TabletServers) {
		if !p.filters.MatchHost(l.Server) {
			continue
		}
		change := l.Change.String()
		status := l.Second.Status
		uptime := strconv.FormatUint(l.Second.UptimeSeconds, 10) + "s"
		switch l.Change {
		case engine.ChangeRemoved:
			status = l.First.Status
			uptime = strconv.FormatUint(l.First.UptimeSeconds, 10) + "s"
		case engine.ChangeModified:
			if l.Rebooted {
				change = "rebooted"
				uptime = strconv.FormatUint(l.First.UptimeSeconds, 10) + "s -> " + uptime
			}
			if l.StatusChanged {
				status = l.First.Status + " -> " + l.Second.Status
			}
		}
		rows = append(rows, []string{l.Server, change, status, uptime})
	}
	return p.section("Tablet servers", []string{"Server", "Change", "Status", "Uptime"}, rows)
}

func (p *Presenter) rejected(rep *engine.Report) error {
	if !p.opts.Details {
		return nil
	}
	var rows [][]string
	for _, r := range rep.Metrics.Rejected {
		name := r.Sample.MetricName()
		if !p.filters.Match(r.HostnamePort, name, "") {
			continue
		}
		var value string
		switch s := r.Sample.(type) {
		case model.RejectedU64:
			value = strconv.FormatUint(s.Value, 10)
		case model.RejectedBoolean:
			value = strconv.FormatBool(s.Value)
		}
		side := "begin"
		if r.Second {
			side = "end"
		}
		rows = append(rows, []string{r.HostnamePort, r.EntityType + ":" + r.EntityID, name, value, side})
	}
	return p.section("Rejected samples", []string{"Hostname", "Entity", "Metric", "Value", "Snapshot"}, rows)
}

func (p *Presenter) notice(msg string) error {
	_, err := fmt.Fprintln(p.w, p.r.NewStyle().Faint(true).Render(msg))
	return err
}

// section renders a titled table; nothing is written when rows is empty.
func (p *Presenter) section(title string, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	headerStyle := p.r.NewStyle().Bold(true)
	cellStyle := p.r.NewStyle().PaddingRight(2)
	t := ltable.New().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle.PaddingRight(2)
			}
			return cellStyle
		}).
		BorderStyle(p.r.NewStyle()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)

	_, err := fmt.Fprintf(p.w, "\n%s\n%s\n", headerStyle.Render(title), t.String())
	return err
}
