package parse

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/dm/yb-stats/internal/model"
)

// PathSeparator joins mem-tracker ids into a Path.
const PathSeparator = "->"

// NoLimit is stored as Limit for trackers the page reports as "none".
const NoLimit int64 = -1

// MemTrackers parses the HTML /mem-trackers page. Each data row carries a
// data-depth attribute; a tracker's path is built from the ids of the
// nearest preceding rows at each shallower depth.
func MemTrackers(body []byte, hostPort string, at time.Time) ([]model.MemTracker, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse mem-trackers html")
	}

	var (
		out    []model.MemTracker
		stack  []string
		rowErr error
	)
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return true // header row
		}

		depth := 0
		if attr, ok := row.Attr("data-depth"); ok {
			if d, err := strconv.Atoi(attr); err == nil && d >= 0 {
				depth = d
			}
		}
		if depth > len(stack) {
			depth = len(stack)
		}

		id := strings.TrimSpace(cells.Eq(0).Text())
		stack = append(stack[:depth], id)

		current, err := parseSize(cells.Eq(1).Text())
		if err != nil {
			rowErr = errors.Wrapf(err, "tracker %q current consumption", id)
			return false
		}
		peak, err := parseSize(cells.Eq(2).Text())
		if err != nil {
			rowErr = errors.Wrapf(err, "tracker %q peak consumption", id)
			return false
		}
		limit, err := parseSize(cells.Eq(3).Text())
		if err != nil {
			rowErr = errors.Wrapf(err, "tracker %q limit", id)
			return false
		}

		out = append(out, model.MemTracker{
			HostnamePort:       hostPort,
			Timestamp:          at,
			ID:                 id,
			Path:               strings.Join(stack, PathSeparator),
			Depth:              depth,
			CurrentConsumption: current,
			PeakConsumption:    peak,
			Limit:              limit,
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return out, nil
}

// parseSize reads the server's human readable byte sizes ("512B", "1.44G",
// "none"). Single-letter suffixes are binary multiples.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return NoLimit, nil
	}
	switch s[len(s)-1] {
	case 'K', 'M', 'G', 'T', 'P':
		s += "iB"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
