package model

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// Entity types reported by the /metrics endpoints.
const (
	EntityServer  = "server"
	EntityCluster = "cluster"
	EntityTable   = "table"
	EntityTablet  = "tablet"
	EntityCDC     = "cdc"
	EntityCDCSDK  = "cdcsdk"
)

// IsSummable reports whether entities of this type are summed per host when
// detail mode is off.
func IsSummable(entityType string) bool {
	switch entityType {
	case EntityTable, EntityTablet, EntityCDC, EntityCDCSDK:
		return true
	default:
		return false
	}
}

// Attributes are display-only properties of an Entity.
type Attributes struct {
	NamespaceName string `json:"namespace_name,omitempty"`
	TableName     string `json:"table_name,omitempty"`
	TableID       string `json:"table_id,omitempty"`
}

// Entity is one polled object from one host at one point in time.
type Entity struct {
	HostnamePort string     `json:"hostname_port"`
	Timestamp    time.Time  `json:"timestamp"`
	Type         string     `json:"type"`
	ID           string     `json:"id"`
	Attributes   Attributes `json:"attributes"`
	Samples      []Sample   `json:"metrics"`
}

// UnmarshalJSON restores the Samples of a persisted Entity through
// DecodeSample.
func (e *Entity) UnmarshalJSON(data []byte) error {
	type alias Entity
	var raw struct {
		alias
		Samples []json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entity(raw.alias)
	e.Samples = make([]Sample, 0, len(raw.Samples))
	for _, m := range raw.Samples {
		s, err := DecodeSample(m)
		if err != nil {
			return errors.Wrapf(err, "entity %s/%s on %s", e.Type, e.ID, e.HostnamePort)
		}
		e.Samples = append(e.Samples, s)
	}
	return nil
}
