// Package parse turns raw diagnostic payloads into model records stamped
// with the source hostname:port and fetch time.
package parse

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/model"
)

type rawEntity struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes model.Attributes  `json:"attributes"`
	Metrics    []json.RawMessage `json:"metrics"`
}

// Metrics parses a JSON /metrics payload. Only a malformed top level fails
// the whole payload; a sample that cannot be decoded is logged and skipped,
// and out-of-range values come back as rejected samples.
func Metrics(body []byte, hostPort string, at time.Time, log logrus.FieldLogger) ([]model.Entity, error) {
	var raw []rawEntity
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decode metrics payload")
	}

	entities := make([]model.Entity, 0, len(raw))
	for _, re := range raw {
		e := model.Entity{
			HostnamePort: hostPort,
			Timestamp:    at,
			Type:         re.Type,
			ID:           re.ID,
			Attributes:   re.Attributes,
			Samples:      make([]model.Sample, 0, len(re.Metrics)),
		}
		for _, m := range re.Metrics {
			s, err := model.DecodeSample(m)
			if err != nil {
				log.WithFields(logrus.Fields{
					"hostname_port": hostPort,
					"entity_type":   re.Type,
					"entity_id":     re.ID,
				}).WithError(err).Debug("skipping undecodable sample")
				continue
			}
			e.Samples = append(e.Samples, s)
		}
		entities = append(entities, e)
	}
	return entities, nil
}
