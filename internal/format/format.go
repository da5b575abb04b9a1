// Package format renders numbers for the text and TUI presenters.
package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/dm/yb-stats/internal/metadata"
)

// NotAvailable is shown where a value cannot be computed, such as a rate
// over zero elapsed time.
const NotAvailable = "-"

const bytesSuffix = "bytes"

// Bytes formats a byte count with binary units. Example: 1536 → "1.5 KiB".
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(absUint(n))
	}
	return humanize.IBytes(uint64(n))
}

// SignedBytes is Bytes with an explicit sign. Example: 300 → "+300 B".
func SignedBytes(n int64) string {
	if n > 0 {
		return "+" + Bytes(n)
	}
	return Bytes(n)
}

// Number formats an integer with comma separators. Example: 12345678 → "12,345,678".
func Number(n int64) string {
	return humanize.Comma(n)
}

// Signed is Number with an explicit sign for positive values.
func Signed(n int64) string {
	if n > 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}

// Rate formats a per-second rate with one decimal place, or NotAvailable
// when ok is false.
func Rate(r float64, ok bool) string {
	if !ok || math.IsNaN(r) || math.IsInf(r, 0) {
		return NotAvailable
	}
	return Float(r) + " /s"
}

// Float formats f with comma separators and one decimal place.
func Float(f float64) string {
	return humanize.FormatFloat("#,###.#", f)
}

// Latency formats milliseconds, switching to seconds from 1000 ms.
func Latency(ms float64) string {
	if ms < 0 {
		return NotAvailable
	}
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.2f ms", ms)
}

// Value formats a raw metric value with the unit from info. Byte metrics
// use binary units; others are divided by the divisor and suffixed.
func Value(v int64, info metadata.Info) string {
	if info.Suffix == bytesSuffix {
		return Bytes(v)
	}
	if info.Divisor > 1 {
		return humanize.FormatFloat("#,###.###", float64(v)/float64(info.Divisor)) + " " + info.Suffix
	}
	return humanize.Comma(v) + " " + info.Suffix
}

// Delta formats a signed difference in the unit from info.
func Delta(d int64, info metadata.Info) string {
	if info.Suffix == bytesSuffix {
		return SignedBytes(d)
	}
	s := Value(d, info)
	if d > 0 {
		return "+" + s
	}
	return s
}

func absUint(n int64) uint64 {
	if n == math.MinInt64 {
		return uint64(math.MaxInt64) + 1
	}
	return uint64(-n)
}
