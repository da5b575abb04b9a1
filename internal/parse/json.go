package parse

import (
	"encoding/json"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dm/yb-stats/internal/model"
)

// Varz parses /api/v1/varz.
func Varz(body []byte, hostPort string, at time.Time) ([]model.Var, error) {
	var payload struct {
		Flags []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
			Type  string `json:"type"`
		} `json:"flags"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode varz payload")
	}

	vars := make([]model.Var, 0, len(payload.Flags))
	for _, f := range payload.Flags {
		vars = append(vars, model.Var{
			HostnamePort: hostPort,
			Timestamp:    at,
			Name:         f.Name,
			Value:        f.Value,
			Type:         f.Type,
		})
	}
	return vars, nil
}

type hostPortPB struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func joinHostPorts(in []hostPortPB) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, hp := range in {
		out = append(out, net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port)))
	}
	return out
}

type masterEntry struct {
	InstanceID struct {
		PermanentUUID string `json:"permanent_uuid"`
		InstanceSeqno int64  `json:"instance_seqno"`
		StartTimeUs   int64  `json:"start_time_us"`
	} `json:"instance_id"`
	Registration struct {
		PrivateRPCAddresses []hostPortPB `json:"private_rpc_addresses"`
		HTTPAddresses       []hostPortPB `json:"http_addresses"`
		CloudInfo           struct {
			PlacementCloud  string `json:"placement_cloud"`
			PlacementRegion string `json:"placement_region"`
			PlacementZone   string `json:"placement_zone"`
		} `json:"cloud_info"`
		PlacementUUID string `json:"placement_uuid"`
	} `json:"registration"`
	Role  string `json:"role"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Masters parses /api/v1/masters into one flat record per master.
func Masters(body []byte, hostPort string, at time.Time) ([]model.Master, error) {
	var payload struct {
		Masters []masterEntry `json:"masters"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode masters payload")
	}

	masters := make([]model.Master, 0, len(payload.Masters))
	for _, m := range payload.Masters {
		rec := model.Master{
			HostnamePort:  hostPort,
			Timestamp:     at,
			PermanentUUID: m.InstanceID.PermanentUUID,
			InstanceSeqno: m.InstanceID.InstanceSeqno,
			StartTimeUs:   m.InstanceID.StartTimeUs,
			Role:          m.Role,
			Cloud:         m.Registration.CloudInfo.PlacementCloud,
			Region:        m.Registration.CloudInfo.PlacementRegion,
			Zone:          m.Registration.CloudInfo.PlacementZone,
			PlacementUUID: m.Registration.PlacementUUID,
			RPCAddresses:  joinHostPorts(m.Registration.PrivateRPCAddresses),
			HTTPAddresses: joinHostPorts(m.Registration.HTTPAddresses),
		}
		if m.Error != nil {
			rec.Error = m.Error.Code
			if m.Error.Message != "" {
				rec.Error += ": " + m.Error.Message
			}
		}
		masters = append(masters, rec)
	}
	return masters, nil
}

type tabletServerEntry struct {
	TimeSinceHBSec     float64 `json:"time_since_hb_sec"`
	Status             string  `json:"status"`
	UptimeSeconds      uint64  `json:"uptime_seconds"`
	RAMUsedBytes       uint64  `json:"ram_used_bytes"`
	NumSSTFiles        uint64  `json:"num_sst_files"`
	TotalSSTFileSize   uint64  `json:"total_sst_file_size"`
	ReadOpsPerSec      float64 `json:"read_ops_per_sec"`
	WriteOpsPerSec     float64 `json:"write_ops_per_sec"`
	UserTabletsTotal   uint64  `json:"user_tablets_total"`
	UserTabletsLeaders uint64  `json:"user_tablets_leaders"`
	Cloud              string  `json:"cloud"`
	Region             string  `json:"region"`
	Zone               string  `json:"zone"`
}

// TabletServers parses /api/v1/tablet-servers. The payload is keyed by
// placement UUID and then by server hostname:port; records come back
// ordered by placement and server.
func TabletServers(body []byte, hostPort string, at time.Time) ([]model.TabletServer, error) {
	var payload map[string]map[string]tabletServerEntry
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode tablet servers payload")
	}

	var out []model.TabletServer
	for placement, servers := range payload {
		for server, ts := range servers {
			out = append(out, model.TabletServer{
				HostnamePort:       hostPort,
				Timestamp:          at,
				Server:             server,
				PlacementUUID:      placement,
				Status:             ts.Status,
				UptimeSeconds:      ts.UptimeSeconds,
				TimeSinceHBSec:     ts.TimeSinceHBSec,
				RAMUsedBytes:       ts.RAMUsedBytes,
				NumSSTFiles:        ts.NumSSTFiles,
				TotalSSTFileSize:   ts.TotalSSTFileSize,
				ReadOpsPerSec:      ts.ReadOpsPerSec,
				WriteOpsPerSec:     ts.WriteOpsPerSec,
				UserTabletsTotal:   ts.UserTabletsTotal,
				UserTabletsLeaders: ts.UserTabletsLeaders,
				Cloud:              ts.Cloud,
				Region:             ts.Region,
				Zone:               ts.Zone,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacementUUID != out[j].PlacementUUID {
			return out[i].PlacementUUID < out[j].PlacementUUID
		}
		return out[i].Server < out[j].Server
	})
	return out, nil
}
