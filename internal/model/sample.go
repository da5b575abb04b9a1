package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Sample is one named measurement of an Entity. The concrete type is one of
// Value, CountSum, CountSumRows, RejectedU64 or RejectedBoolean and is fixed
// when the payload is decoded.
type Sample interface {
	MetricName() string
	isSample()
}

// Value is an instantaneous counter or gauge.
type Value struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// CountSum is a histogram aggregate. Only TotalCount and TotalSum take part
// in diffing; the distribution fields are carried for display.
type CountSum struct {
	Name           string  `json:"name"`
	TotalCount     int64   `json:"total_count"`
	Min            float64 `json:"min"`
	Mean           float64 `json:"mean"`
	Percentile75   float64 `json:"percentile_75"`
	Percentile95   float64 `json:"percentile_95"`
	Percentile99   float64 `json:"percentile_99"`
	Percentile999  float64 `json:"percentile_99_9"`
	Percentile9999 float64 `json:"percentile_99_99"`
	Max            float64 `json:"max"`
	TotalSum       int64   `json:"total_sum"`
}

// CountSumRows is the count/sum/rows triple reported by the YSQL statement
// handlers. Sum is in microseconds.
type CountSumRows struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Sum   int64  `json:"sum"`
	Rows  int64  `json:"rows"`
}

// RejectedU64 holds an unsigned value that does not fit in an int64.
type RejectedU64 struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// RejectedBoolean holds a boolean where a number was expected.
type RejectedBoolean struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

func (s Value) MetricName() string           { return s.Name }
func (s CountSum) MetricName() string        { return s.Name }
func (s CountSumRows) MetricName() string    { return s.Name }
func (s RejectedU64) MetricName() string     { return s.Name }
func (s RejectedBoolean) MetricName() string { return s.Name }

func (Value) isSample()           {}
func (CountSum) isSample()        {}
func (CountSumRows) isSample()    {}
func (RejectedU64) isSample()     {}
func (RejectedBoolean) isSample() {}

// IsRejected reports whether s is one of the rejected variants.
func IsRejected(s Sample) bool {
	switch s.(type) {
	case RejectedU64, RejectedBoolean:
		return true
	default:
		return false
	}
}

// DecodeSample decodes one element of a metrics "metrics" array. The shape
// is chosen by the fields present:
//
//	value                -> Value, RejectedU64 or RejectedBoolean
//	total_count          -> CountSum
//	count, sum and rows  -> CountSumRows
//
// Values outside the int64 range and booleans are routed into the rejected
// variants instead of failing.
func DecodeSample(raw []byte) (Sample, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "decode sample")
	}

	var name string
	if rawName, ok := fields["name"]; ok {
		if err := json.Unmarshal(rawName, &name); err != nil {
			return nil, errors.Wrap(err, "decode sample name")
		}
	}
	if name == "" {
		return nil, errors.New("sample has no name")
	}

	if rawValue, ok := fields["value"]; ok {
		return decodeValue(name, rawValue)
	}

	if _, ok := fields["total_count"]; ok {
		var s CountSum
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "decode count/sum sample %q", name)
		}
		return s, nil
	}

	_, hasCount := fields["count"]
	_, hasSum := fields["sum"]
	_, hasRows := fields["rows"]
	if hasCount && hasSum && hasRows {
		var s CountSumRows
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "decode count/sum/rows sample %q", name)
		}
		return s, nil
	}

	return nil, errors.Newf("sample %q has an unrecognised shape", name)
}

func decodeValue(name string, raw json.RawMessage) (Sample, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true":
		return RejectedBoolean{Name: name, Value: true}, nil
	case "false":
		return RejectedBoolean{Name: name, Value: false}, nil
	}

	text := string(raw)
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Value{Name: name, Value: v}, nil
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil && u > math.MaxInt64 {
		return RejectedU64{Name: name, Value: u}, nil
	}
	return nil, errors.Newf("sample %q has a non-integer value %s", name, text)
}
