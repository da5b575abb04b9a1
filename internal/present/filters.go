// Package present renders an engine.Report as aligned text.
package present

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// Filters restrict which rows are rendered. A nil pattern matches
// everything.
type Filters struct {
	Hostname  *regexp.Regexp
	StatName  *regexp.Regexp
	TableName *regexp.Regexp
}

// NewFilters compiles the three patterns; empty strings disable a filter.
func NewFilters(hostname, statName, tableName string) (Filters, error) {
	var f Filters
	var err error
	if f.Hostname, err = compile("hostname-match", hostname); err != nil {
		return Filters{}, err
	}
	if f.StatName, err = compile("stat-name-match", statName); err != nil {
		return Filters{}, err
	}
	if f.TableName, err = compile("table-name-match", tableName); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func compile(flag, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid -%s pattern", flag)
	}
	return re, nil
}

// Match reports whether a row passes. The table filter only applies to
// rows that carry a table name.
func (f Filters) Match(hostname, stat, table string) bool {
	if f.Hostname != nil && !f.Hostname.MatchString(hostname) {
		return false
	}
	if f.StatName != nil && !f.StatName.MatchString(stat) {
		return false
	}
	if f.TableName != nil && table != "" && !f.TableName.MatchString(table) {
		return false
	}
	return true
}

// MatchHost applies only the hostname filter. Cluster membership rows have
// no stat or table name.
func (f Filters) MatchHost(hostname string) bool {
	return f.Hostname == nil || f.Hostname.MatchString(hostname)
}
