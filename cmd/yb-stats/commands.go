package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"

	"github.com/dm/yb-stats/internal/client"
	"github.com/dm/yb-stats/internal/collector"
	"github.com/dm/yb-stats/internal/config"
	"github.com/dm/yb-stats/internal/engine"
	"github.com/dm/yb-stats/internal/logging"
	"github.com/dm/yb-stats/internal/metadata"
	"github.com/dm/yb-stats/internal/model"
	"github.com/dm/yb-stats/internal/present"
	"github.com/dm/yb-stats/internal/snapshot"
	"github.com/dm/yb-stats/internal/tui"
)

const defaultWatchInterval = 5 * time.Second

// cli carries the state shared by every subcommand.
type cli struct {
	cfg  config.Config
	diff config.Diff

	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	newClient func(client.ClientConfig) client.Client

	log *logrus.Logger
}

func (c *cli) flagSet(name string, withDiff bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	c.cfg.RegisterFlags(fs)
	if withDiff {
		c.diff.RegisterFlags(fs)
	}
	return fs
}

// setup resolves configuration and builds the logger. Every Exec calls it
// first.
func (c *cli) setup() error {
	if err := c.cfg.Resolve(); err != nil {
		return err
	}
	log, err := logging.New(c.stderr, c.cfg.LogLevel, c.cfg.LogJSON)
	if err != nil {
		return err
	}
	c.log = log
	return nil
}

func (c *cli) collector() *collector.Collector {
	return collector.New(c.newClient(c.cfg.ClientConfig()), c.cfg.Parallel, c.log)
}

func (c *cli) collect(ctx context.Context, col *collector.Collector) *model.Snapshot {
	snap := col.Collect(ctx, c.cfg.Hosts, c.cfg.Ports)
	if snap.Empty() {
		c.log.WithField("hosts", c.cfg.Hosts).Warn("no host returned any data")
	}
	return snap
}

func (c *cli) presenter() (*present.Presenter, error) {
	filters, err := c.diff.Filters()
	if err != nil {
		return nil, err
	}
	return present.New(c.stdout, metadata.Default(), filters, c.diff.Options()), nil
}

func (c *cli) report(first, second *model.Snapshot) error {
	p, err := c.presenter()
	if err != nil {
		return err
	}
	rep, err := engine.DiffSnapshots(first, second, c.diff.Details, c.log)
	if err != nil {
		return errors.Wrap(err, "diff snapshots")
	}
	return p.Render(rep)
}

func noArgs(name string, args []string) error {
	if len(args) > 0 {
		return errors.Newf("%s: unexpected argument %q", name, args[0])
	}
	return nil
}

func (c *cli) snapshotCmd() *ffcli.Command {
	var comment string
	fs := c.flagSet("snapshot", false)
	fs.StringVar(&comment, "comment", "", "comment stored with the snapshot")

	return &ffcli.Command{
		Name:       "snapshot",
		ShortUsage: "yb-stats snapshot [flags]",
		ShortHelp:  "Collect every source and store it as a numbered snapshot",
		FlagSet:    fs,
		Options:    config.Options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs("snapshot", args); err != nil {
				return err
			}
			if err := c.setup(); err != nil {
				return err
			}
			store, err := snapshot.Open(c.cfg.SnapshotDir)
			if err != nil {
				return err
			}
			entry, err := store.SaveSnapshot(comment, c.collect(ctx, c.collector()))
			if err != nil {
				return errors.Wrap(err, "save snapshot")
			}
			_, err = fmt.Fprintf(c.stdout, "snapshot %d saved\n", entry.Number)
			return err
		},
	}
}

func (c *cli) listCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "list",
		ShortUsage: "yb-stats list [flags]",
		ShortHelp:  "List stored snapshots",
		FlagSet:    c.flagSet("list", false),
		Options:    config.Options(),
		Exec: func(_ context.Context, args []string) error {
			if err := noArgs("list", args); err != nil {
				return err
			}
			if err := c.setup(); err != nil {
				return err
			}
			store, err := snapshot.Open(c.cfg.SnapshotDir)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			return present.New(c.stdout, nil, present.Filters{}, present.Options{}).Snapshots(entries, time.Now())
		},
	}
}

func (c *cli) diffCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "diff",
		ShortUsage: "yb-stats diff [flags] <begin> <end>",
		ShortHelp:  "Report the changes between two stored snapshots",
		FlagSet:    c.flagSet("diff", true),
		Options:    config.Options(),
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 2 {
				return errors.New("diff: expected <begin> and <end> snapshot numbers")
			}
			numbers := make([]int, 2)
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil || n < 0 {
					return errors.Newf("diff: invalid snapshot number %q", a)
				}
				numbers[i] = n
			}
			if err := c.setup(); err != nil {
				return err
			}
			store, err := snapshot.Open(c.cfg.SnapshotDir)
			if err != nil {
				return err
			}
			first, err := store.LoadSnapshot(numbers[0])
			if err != nil {
				return err
			}
			second, err := store.LoadSnapshot(numbers[1])
			if err != nil {
				return err
			}
			return c.report(first, second)
		},
	}
}

func (c *cli) adhocCmd() *ffcli.Command {
	var wait time.Duration
	fs := c.flagSet("adhoc", true)
	fs.DurationVar(&wait, "wait", 0, "time between the two collections; 0 waits for Enter")

	return &ffcli.Command{
		Name:       "adhoc",
		ShortUsage: "yb-stats adhoc [flags]",
		ShortHelp:  "Collect twice and report the changes without storing anything",
		FlagSet:    fs,
		Options:    config.Options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs("adhoc", args); err != nil {
				return err
			}
			if wait < 0 {
				return errors.Newf("-wait must not be negative, got %s", wait)
			}
			if err := c.setup(); err != nil {
				return err
			}
			if _, err := c.diff.Filters(); err != nil {
				return err
			}
			col := c.collector()
			first := c.collect(ctx, col)
			if err := c.pause(ctx, wait); err != nil {
				return err
			}
			second := c.collect(ctx, col)
			return c.report(first, second)
		},
	}
}

// pause waits for d, or for a line on stdin when d is zero.
func (c *cli) pause(ctx context.Context, d time.Duration) error {
	if d > 0 {
		c.log.WithField("wait", d.String()).Info("waiting before the end snapshot")
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	fmt.Fprint(c.stderr, "Begin snapshot taken. Press Enter to take the end snapshot.")
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.stdin).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()
	select {
	case err := <-done:
		fmt.Fprintln(c.stderr)
		return errors.Wrap(err, "read stdin")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *cli) watchCmd() *ffcli.Command {
	var interval time.Duration
	fs := c.flagSet("watch", true)
	fs.DurationVar(&interval, "interval", defaultWatchInterval, "time between polls")

	return &ffcli.Command{
		Name:       "watch",
		ShortUsage: "yb-stats watch [flags]",
		ShortHelp:  "Poll continuously and show what changed since the previous poll",
		FlagSet:    fs,
		Options:    config.Options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs("watch", args); err != nil {
				return err
			}
			if interval <= 0 {
				return errors.Newf("-interval must be positive, got %s", interval)
			}
			if err := c.setup(); err != nil {
				return err
			}
			filters, err := c.diff.Filters()
			if err != nil {
				return err
			}
			// The alternate screen owns the terminal.
			c.log.SetOutput(io.Discard)

			app := tui.NewApp(c.collector(), tui.Config{
				Hosts:    c.cfg.Hosts,
				Ports:    c.cfg.Ports,
				Interval: interval,
				Meta:     metadata.Default(),
				Filters:  filters,
				Options:  c.diff.Options(),
			}, c.log)
			p := tea.NewProgram(app,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(c.stdin),
				tea.WithOutput(c.stdout),
			)
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return errors.Wrap(err, "watch")
			}
			return nil
		},
	}
}
