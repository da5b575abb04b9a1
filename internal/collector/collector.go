// Package collector fetches every diagnostic source from every configured
// hostname:port and assembles the results into one model.Snapshot.
package collector

import (
	"context"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dm/yb-stats/internal/client"
	"github.com/dm/yb-stats/internal/model"
	"github.com/dm/yb-stats/internal/parse"
)

// Ports on which each source is served.
var (
	MetricsPorts      = []int{7000, 9000, 12000, 13000}
	NodeExporterPorts = []int{9300}
	VarsPorts         = []int{7000, 9000}
	MasterPorts       = []int{7000}
	MemTrackerPorts   = []int{7000, 9000}
)

// DefaultPorts is every port some source is served on.
var DefaultPorts = []int{7000, 9000, 12000, 13000, 9300}

// DefaultParallel bounds concurrent fetches when no explicit value is set.
const DefaultParallel = 1

// Collector fans fetches out over a bounded number of goroutines.
type Collector struct {
	client   client.Client
	parallel int
	log      logrus.FieldLogger
	now      func() time.Time
}

// New returns a Collector. parallel below one is treated as one.
func New(c client.Client, parallel int, log logrus.FieldLogger) *Collector {
	if parallel < 1 {
		parallel = DefaultParallel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{client: c, parallel: parallel, log: log, now: time.Now}
}

// Targets returns hostname:port for every host and every port in ports that
// is also in serving. Order follows hosts, then ports.
func Targets(hosts []string, ports, serving []int) []string {
	var out []string
	for _, h := range hosts {
		for _, p := range ports {
			if slices.Contains(serving, p) {
				out = append(out, net.JoinHostPort(h, strconv.Itoa(p)))
			}
		}
	}
	return out
}

type fetchFunc[T any] func(ctx context.Context, hostPort string, at time.Time) ([]T, error)

// schedule queues one fetch per target on g and returns a function that,
// once g has been waited on, yields the records in target order. A failing
// target is logged and contributes nothing.
func schedule[T any](ctx context.Context, g *errgroup.Group, c *Collector, source string, targets []string, fetch fetchFunc[T]) func() []T {
	slots := make([][]T, len(targets))
	for i, hp := range targets {
		g.Go(func() error {
			at := c.now()
			recs, err := fetch(ctx, hp, at)
			if err != nil {
				c.log.WithFields(logrus.Fields{
					"source":        source,
					"hostname_port": hp,
				}).WithError(err).Debug("fetch failed")
				return nil
			}
			slots[i] = recs
			return nil
		})
	}
	return func() []T { return slices.Concat(slots...) }
}

// Collect fetches every source from every applicable target. It never fails:
// unreachable hosts and unparsable payloads only leave gaps.
func (c *Collector) Collect(ctx context.Context, hosts []string, ports []int) *model.Snapshot {
	start := c.now()
	var g errgroup.Group
	g.SetLimit(c.parallel)

	metrics := schedule(ctx, &g, c, "metrics", Targets(hosts, ports, MetricsPorts),
		func(ctx context.Context, hp string, at time.Time) ([]model.Entity, error) {
			body, err := c.client.GetMetrics(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.Metrics(body, hp, at, c.log)
		})

	nodeExporter := schedule(ctx, &g, c, "node_exporter", Targets(hosts, ports, NodeExporterPorts),
		func(ctx context.Context, hp string, at time.Time) ([]model.NodeExporterSample, error) {
			body, err := c.client.GetNodeExporter(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.NodeExporter(body, hp, at)
		})

	vars := schedule(ctx, &g, c, "vars", Targets(hosts, ports, VarsPorts),
		func(ctx context.Context, hp string, at time.Time) ([]model.Var, error) {
			body, err := c.client.GetVarz(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.Varz(body, hp, at)
		})

	masterTargets := Targets(hosts, ports, MasterPorts)

	masters := schedule(ctx, &g, c, "masters", masterTargets,
		func(ctx context.Context, hp string, at time.Time) ([]model.Master, error) {
			body, err := c.client.GetMasters(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.Masters(body, hp, at)
		})

	tabletServers := schedule(ctx, &g, c, "tablet_servers", masterTargets,
		func(ctx context.Context, hp string, at time.Time) ([]model.TabletServer, error) {
			body, err := c.client.GetTabletServers(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.TabletServers(body, hp, at)
		})

	leaders := schedule(ctx, &g, c, "is_leader", masterTargets,
		func(ctx context.Context, hp string, at time.Time) ([]model.IsLeader, error) {
			ok, err := c.client.IsLeader(ctx, hp)
			if err != nil {
				return nil, err
			}
			return []model.IsLeader{{HostnamePort: hp, Timestamp: at, IsLeader: ok}}, nil
		})

	memTrackers := schedule(ctx, &g, c, "mem_trackers", Targets(hosts, ports, MemTrackerPorts),
		func(ctx context.Context, hp string, at time.Time) ([]model.MemTracker, error) {
			body, err := c.client.GetMemTrackers(ctx, hp)
			if err != nil {
				return nil, err
			}
			return parse.MemTrackers(body, hp, at)
		})

	_ = g.Wait() // fetches never return errors

	snap := &model.Snapshot{
		Metrics:       metrics(),
		NodeExporter:  nodeExporter(),
		Vars:          vars(),
		Masters:       masters(),
		TabletServers: tabletServers(),
		Leaders:       leaders(),
		MemTrackers:   memTrackers(),
		FetchedAt:     start,
	}
	c.log.WithFields(logrus.Fields{
		"entities":       len(snap.Metrics),
		"node_exporter":  len(snap.NodeExporter),
		"vars":           len(snap.Vars),
		"masters":        len(snap.Masters),
		"tablet_servers": len(snap.TabletServers),
		"mem_trackers":   len(snap.MemTrackers),
		"elapsed":        c.now().Sub(start).String(),
	}).Debug("collection finished")
	return snap
}
