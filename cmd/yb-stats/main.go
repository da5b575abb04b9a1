// yb-stats collects diagnostic snapshots from a YugabyteDB cluster and
// reports what changed between two of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/dm/yb-stats/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, newHTTPClient)
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newHTTPClient(cfg client.ClientConfig) client.Client {
	return client.NewDefaultClient(cfg)
}

// run builds the command tree and executes the selected subcommand.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, newClient func(client.ClientConfig) client.Client) error {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, newClient: newClient}

	rootFlags := flag.NewFlagSet("yb-stats", flag.ContinueOnError)
	rootFlags.SetOutput(stderr)

	root := &ffcli.Command{
		Name:       "yb-stats",
		ShortUsage: "yb-stats <subcommand> [flags]",
		ShortHelp:  "Collect and compare YugabyteDB diagnostic snapshots",
		FlagSet:    rootFlags,
		Subcommands: []*ffcli.Command{
			c.snapshotCmd(),
			c.listCmd(),
			c.diffCmd(),
			c.adhocCmd(),
			c.watchCmd(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
	return root.ParseAndRun(ctx, args)
}
