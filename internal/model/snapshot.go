package model

import "time"

// Snapshot holds the results of one collection pass across every configured
// host:port and every source.
type Snapshot struct {
	Metrics       []Entity
	NodeExporter  []NodeExporterSample
	Vars          []Var
	Masters       []Master
	TabletServers []TabletServer
	Leaders       []IsLeader
	MemTrackers   []MemTracker
	FetchedAt     time.Time
}

// Empty reports whether no source returned any record.
func (s *Snapshot) Empty() bool {
	return len(s.Metrics) == 0 &&
		len(s.NodeExporter) == 0 &&
		len(s.Vars) == 0 &&
		len(s.Masters) == 0 &&
		len(s.TabletServers) == 0 &&
		len(s.Leaders) == 0 &&
		len(s.MemTrackers) == 0
}
