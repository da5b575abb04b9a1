package model

import "time"

// Master is one entry of a master's /api/v1/masters view of the cluster.
// HostnamePort is the master that reported it, not the master it describes.
type Master struct {
	HostnamePort  string    `json:"hostname_port"`
	Timestamp     time.Time `json:"timestamp"`
	PermanentUUID string    `json:"permanent_uuid"`
	InstanceSeqno int64     `json:"instance_seqno"`
	StartTimeUs   int64     `json:"start_time_us"`
	Role          string    `json:"role"`
	Cloud         string    `json:"placement_cloud"`
	Region        string    `json:"placement_region"`
	Zone          string    `json:"placement_zone"`
	PlacementUUID string    `json:"placement_uuid"`
	RPCAddresses  []string  `json:"private_rpc_addresses"`
	HTTPAddresses []string  `json:"http_addresses"`
	Error         string    `json:"error,omitempty"`
}

// TabletServer is one entry of a master's /api/v1/tablet-servers view.
// Server is the tablet server's own HTTP address.
type TabletServer struct {
	HostnamePort       string    `json:"hostname_port"`
	Timestamp          time.Time `json:"timestamp"`
	Server             string    `json:"server"`
	PlacementUUID      string    `json:"placement_uuid"`
	Status             string    `json:"status"`
	UptimeSeconds      uint64    `json:"uptime_seconds"`
	TimeSinceHBSec     float64   `json:"time_since_hb_sec"`
	RAMUsedBytes       uint64    `json:"ram_used_bytes"`
	NumSSTFiles        uint64    `json:"num_sst_files"`
	TotalSSTFileSize   uint64    `json:"total_sst_file_size"`
	ReadOpsPerSec      float64   `json:"read_ops_per_sec"`
	WriteOpsPerSec     float64   `json:"write_ops_per_sec"`
	UserTabletsTotal   uint64    `json:"user_tablets_total"`
	UserTabletsLeaders uint64    `json:"user_tablets_leaders"`
	Cloud              string    `json:"cloud"`
	Region             string    `json:"region"`
	Zone               string    `json:"zone"`
}

// Var is one gflag as reported by /api/v1/varz.
type Var struct {
	HostnamePort string    `json:"hostname_port"`
	Timestamp    time.Time `json:"timestamp"`
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	Type         string    `json:"type"`
}

// IsLeader records whether a master answered /api/v1/is-leader positively.
type IsLeader struct {
	HostnamePort string    `json:"hostname_port"`
	Timestamp    time.Time `json:"timestamp"`
	IsLeader     bool      `json:"is_leader"`
}

// FindLeader returns the hostname:port of the first master that reported
// itself as leader.
func FindLeader(records []IsLeader) (string, bool) {
	for _, r := range records {
		if r.IsLeader {
			return r.HostnamePort, true
		}
	}
	return "", false
}

// Node-exporter sample categories.
const (
	CategorySummary = "summary"
	CategoryDetail  = "detail"
)

// Node-exporter sample kinds, as declared by the # TYPE line.
const (
	NodeKindCounter = "counter"
	NodeKindGauge   = "gauge"
	NodeKindUntyped = "untyped"
)

// NodeExporterSample is one Prometheus sample from node_exporter. Labels is
// the canonical `{k="v",...}` rendering with keys sorted, or empty.
type NodeExporterSample struct {
	HostnamePort string    `json:"hostname_port"`
	Timestamp    time.Time `json:"timestamp"`
	Name         string    `json:"name"`
	Labels       string    `json:"labels"`
	Kind         string    `json:"kind"`
	Category     string    `json:"category"`
	Value        float64   `json:"value"`
}

// MemTracker is one row of the /mem-trackers page. Path joins the ids of
// the tracker and its parents with "->".
type MemTracker struct {
	HostnamePort       string    `json:"hostname_port"`
	Timestamp          time.Time `json:"timestamp"`
	ID                 string    `json:"id"`
	Path               string    `json:"path"`
	Depth              int       `json:"depth"`
	CurrentConsumption int64     `json:"current_consumption"`
	PeakConsumption    int64     `json:"peak_consumption"`
	Limit              int64     `json:"limit"`
}
