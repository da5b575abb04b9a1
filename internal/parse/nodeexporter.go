package parse

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/dm/yb-stats/internal/model"
)

// cpuLabel marks per-core node_exporter samples.
const cpuLabel = "cpu"

type familyValue struct {
	name  string
	kind  string
	value float64
}

// NodeExporter parses node_exporter's Prometheus text exposition format.
//
// Samples carrying a cpu label are kept per core in the detail category and
// additionally summed across cores into one summary sample per remaining
// label set, e.g. node_cpu_seconds_total{mode="user"}. Summary and
// histogram families contribute their _sum and _count as counters.
func NodeExporter(body []byte, hostPort string, at time.Time) ([]model.NodeExporterSample, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse prometheus text")
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []model.NodeExporterSample
	for _, name := range names {
		out = append(out, familySamples(families[name], hostPort, at)...)
	}
	return out, nil
}

func familySamples(mf *dto.MetricFamily, hostPort string, at time.Time) []model.NodeExporterSample {
	type aggKey struct{ name, labels, kind string }
	var (
		out  []model.NodeExporterSample
		sums = make(map[aggKey]float64)
		keys []aggKey
	)

	for _, m := range mf.GetMetric() {
		full, withoutCPU, perCore := canonicalLabels(m.GetLabel(), cpuLabel)
		for _, fv := range metricValues(mf, m) {
			s := model.NodeExporterSample{
				HostnamePort: hostPort,
				Timestamp:    at,
				Name:         fv.name,
				Labels:       full,
				Kind:         fv.kind,
				Category:     model.CategorySummary,
				Value:        fv.value,
			}
			if perCore {
				s.Category = model.CategoryDetail
				k := aggKey{name: fv.name, labels: withoutCPU, kind: fv.kind}
				if _, seen := sums[k]; !seen {
					keys = append(keys, k)
				}
				sums[k] += fv.value
			}
			out = append(out, s)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].labels < keys[j].labels
	})
	for _, k := range keys {
		out = append(out, model.NodeExporterSample{
			HostnamePort: hostPort,
			Timestamp:    at,
			Name:         k.name,
			Labels:       k.labels,
			Kind:         k.kind,
			Category:     model.CategorySummary,
			Value:        sums[k],
		})
	}
	return out
}

func metricValues(mf *dto.MetricFamily, m *dto.Metric) []familyValue {
	name := mf.GetName()
	switch mf.GetType() {
	case dto.MetricType_COUNTER:
		return []familyValue{{name, model.NodeKindCounter, m.GetCounter().GetValue()}}
	case dto.MetricType_GAUGE:
		return []familyValue{{name, model.NodeKindGauge, m.GetGauge().GetValue()}}
	case dto.MetricType_SUMMARY:
		return []familyValue{
			{name + "_sum", model.NodeKindCounter, m.GetSummary().GetSampleSum()},
			{name + "_count", model.NodeKindCounter, float64(m.GetSummary().GetSampleCount())},
		}
	case dto.MetricType_HISTOGRAM:
		return []familyValue{
			{name + "_sum", model.NodeKindCounter, m.GetHistogram().GetSampleSum()},
			{name + "_count", model.NodeKindCounter, float64(m.GetHistogram().GetSampleCount())},
		}
	default:
		return []familyValue{{name, model.NodeKindUntyped, m.GetUntyped().GetValue()}}
	}
}

// canonicalLabels renders labels sorted by name, once in full and once with
// the drop label removed. hasDrop reports whether the drop label was present.
func canonicalLabels(pairs []*dto.LabelPair, drop string) (full, without string, hasDrop bool) {
	sorted := make([]*dto.LabelPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GetName() < sorted[j].GetName() })

	var all, rest []string
	for _, p := range sorted {
		rendered := p.GetName() + "=" + strconv.Quote(p.GetValue())
		all = append(all, rendered)
		if p.GetName() == drop {
			hasDrop = true
			continue
		}
		rest = append(rest, rendered)
	}
	return braces(all), braces(rest), hasDrop
}

func braces(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}
