// Package config binds command-line flags, YB_STATS_* environment variables
// and an optional config file to the settings every command shares.
package config

import (
	"flag"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/peterbourgon/ff/v3"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/client"
	"github.com/dm/yb-stats/internal/collector"
	"github.com/dm/yb-stats/internal/present"
	"github.com/dm/yb-stats/internal/snapshot"
)

// EnvPrefix is prepended to upper-cased flag names, so -snapshot-dir can be
// set with YB_STATS_SNAPSHOT_DIR.
const EnvPrefix = "YB_STATS"

const (
	defaultHosts   = "127.0.0.1"
	defaultTimeout = 10 * time.Second
)

// Options returns the ff options shared by every command.
func Options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}
}

// Config holds connection, storage and logging settings.
type Config struct {
	Hosts       []string
	Ports       []int
	Parallel    int
	SnapshotDir string
	Timeout     time.Duration
	HTTPS       bool
	Insecure    bool
	Username    string
	Password    string
	LogLevel    string
	LogJSON     bool

	hosts      string
	ports      string
	configFile string
}

// RegisterFlags binds c to fs. It may be called on several flag sets; only
// the one that is parsed takes effect.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.hosts, "hosts", defaultHosts, "comma separated hostnames or IP addresses")
	fs.StringVar(&c.ports, "ports", joinInts(collector.DefaultPorts), "comma separated ports to probe")
	fs.IntVar(&c.Parallel, "parallel", collector.DefaultParallel, "maximum concurrent requests")
	fs.StringVar(&c.SnapshotDir, "snapshot-dir", snapshot.DefaultDir, "directory holding stored snapshots")
	fs.DurationVar(&c.Timeout, "timeout", defaultTimeout, "per request timeout")
	fs.BoolVar(&c.HTTPS, "https", false, "use https to reach the web servers")
	fs.BoolVar(&c.Insecure, "insecure", false, "skip TLS certificate verification")
	fs.StringVar(&c.Username, "username", "", "basic auth user")
	fs.StringVar(&c.Password, "password", "", "basic auth password")
	fs.StringVar(&c.LogLevel, "log-level", logrus.InfoLevel.String(), "log level: debug, info, warn or error")
	fs.BoolVar(&c.LogJSON, "log-json", false, "log as JSON")
	fs.StringVar(&c.configFile, "config", "", "config file with one 'flag value' pair per line")
}

// Resolve parses the host and port lists and validates the result. It must
// be called after the flag set is parsed.
func (c *Config) Resolve() error {
	var err error
	if c.Hosts, err = ParseHosts(c.hosts); err != nil {
		return err
	}
	if c.Ports, err = ParsePorts(c.ports); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("-hosts: at least one host is required")
	}
	if len(c.Ports) == 0 {
		return errors.New("-ports: at least one port is required")
	}
	if c.Parallel < 1 {
		return errors.Newf("-parallel must be at least 1, got %d", c.Parallel)
	}
	if c.Timeout <= 0 {
		return errors.Newf("-timeout must be positive, got %s", c.Timeout)
	}
	if c.SnapshotDir == "" {
		return errors.New("-snapshot-dir must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "-log-level")
	}
	return nil
}

// ClientConfig returns the HTTP client settings.
func (c *Config) ClientConfig() client.ClientConfig {
	return client.ClientConfig{
		HTTPS:              c.HTTPS,
		Username:           c.Username,
		Password:           c.Password,
		InsecureSkipVerify: c.Insecure,
		RequestTimeout:     c.Timeout,
	}
}

// ParseHosts splits a comma separated host list, dropping blanks and
// duplicates.
func ParseHosts(s string) ([]string, error) {
	var out []string
	for _, h := range strings.Split(s, ",") {
		h = strings.TrimSpace(h)
		if h == "" || slices.Contains(out, h) {
			continue
		}
		if strings.ContainsAny(h, "/ ") {
			return nil, errors.Newf("-hosts: invalid host %q", h)
		}
		out = append(out, h)
	}
	return out, nil
}

// ParsePorts splits a comma separated port list, dropping blanks and
// duplicates.
func ParsePorts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Newf("-ports: invalid port %q", f)
		}
		if p < 1 || p > 65535 {
			return nil, errors.Newf("-ports: port %d out of range", p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}

// Diff holds the report filters and display toggles.
type Diff struct {
	HostnameMatch  string
	StatNameMatch  string
	TableNameMatch string
	Details        bool
	Gauges         bool
}

// RegisterFlags adds the filter and display flags to fs.
func (d *Diff) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&d.HostnameMatch, "hostname-match", "", "regex selecting hostname:port")
	fs.StringVar(&d.StatNameMatch, "stat-name-match", "", "regex selecting metric names")
	fs.StringVar(&d.TableNameMatch, "table-name-match", "", "regex selecting table names")
	fs.BoolVar(&d.Details, "details", false, "report tables and tablets individually")
	fs.BoolVar(&d.Gauges, "gauges", false, "include gauge values")
}

// Filters compiles the match patterns.
func (d *Diff) Filters() (present.Filters, error) {
	return present.NewFilters(d.HostnameMatch, d.StatNameMatch, d.TableNameMatch)
}

// Options returns the display toggles.
func (d *Diff) Options() present.Options {
	return present.Options{Details: d.Details, Gauges: d.Gauges}
}
