package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/yb-stats/internal/client"
	"github.com/dm/yb-stats/internal/snapshot"
)

var errUnavailable = errors.New("unavailable")

// fakeClient serves a tablet whose rows_inserted grows by 100 per metrics
// request. Every other endpoint fails.
type fakeClient struct {
	mu    sync.Mutex
	polls int
}

func (f *fakeClient) GetMetrics(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return []byte(fmt.Sprintf(`[{"type":"tablet","id":"t1",
		"attributes":{"namespace_name":"yugabyte","table_name":"orders"},
		"metrics":[{"name":"rows_inserted","value":%d}]}]`, 100*f.polls)), nil
}

func (f *fakeClient) GetNodeExporter(context.Context, string) ([]byte, error) {
	return nil, errUnavailable
}

func (f *fakeClient) GetVarz(context.Context, string) ([]byte, error) { return nil, errUnavailable }

func (f *fakeClient) GetMasters(context.Context, string) ([]byte, error) {
	return nil, errUnavailable
}

func (f *fakeClient) GetTabletServers(context.Context, string) ([]byte, error) {
	return nil, errUnavailable
}

func (f *fakeClient) GetMemTrackers(context.Context, string) ([]byte, error) {
	return nil, errUnavailable
}

func (f *fakeClient) IsLeader(context.Context, string) (bool, error) { return false, errUnavailable }

type harness struct {
	dir    string
	client *fakeClient
	stdin  string
}

func newHarness(t *testing.T) *harness {
	return &harness{dir: t.TempDir(), client: &fakeClient{}}
}

func (h *harness) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	sub, rest := args[0], args[1:]
	full := append([]string{sub, "-snapshot-dir", h.dir, "-hosts", "n1", "-ports", "9000", "-log-level", "error"}, rest...)
	err := run(context.Background(), full, strings.NewReader(h.stdin), &stdout, &stderr,
		func(client.ClientConfig) client.Client { return h.client })
	return stdout.String(), stderr.String(), err
}

func TestSnapshotListDiff(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("snapshot", "-comment", "before")
	require.NoError(t, err)
	assert.Equal(t, "snapshot 0 saved\n", out)

	out, _, err = h.run("snapshot")
	require.NoError(t, err)
	assert.Equal(t, "snapshot 1 saved\n", out)

	out, _, err = h.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshots")
	assert.Contains(t, out, "before")

	out, _, err = h.run("diff", "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "rows_inserted")
	assert.Contains(t, out, "tablet:-")
	assert.Contains(t, out, "+100 rows")
	assert.Contains(t, out, "Masters: leader not found, skipping")

	out, _, err = h.run("diff", "-details", "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "tablet:t1")
	assert.Contains(t, out, "yugabyte.orders")
}

func TestDiff_Errors(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("diff", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<begin> and <end>")

	_, _, err = h.run("diff", "zero", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid snapshot number")

	_, _, err = h.run("diff", "0", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	_, _, err = h.run("snapshot")
	require.NoError(t, err)
	_, _, err = h.run("diff", "-stat-name-match", "(", "0", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat-name-match")
}

func TestAdhoc(t *testing.T) {
	t.Run("fixed wait", func(t *testing.T) {
		h := newHarness(t)
		out, _, err := h.run("adhoc", "-wait", "1ms")
		require.NoError(t, err)
		assert.Contains(t, out, "+100 rows")
		assert.Equal(t, 2, h.client.polls)
	})

	t.Run("wait for enter", func(t *testing.T) {
		h := newHarness(t)
		h.stdin = "\n"
		out, stderr, err := h.run("adhoc")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Press Enter")
		assert.Contains(t, out, "+100 rows")
	})

	t.Run("nothing is stored", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.run("adhoc", "-wait", "1ms")
		require.NoError(t, err)
		out, _, err := h.run("list")
		require.NoError(t, err)
		assert.Contains(t, out, "no snapshots stored")
	})

	t.Run("negative wait", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.run("adhoc", "-wait", "-1s")
		require.Error(t, err)
		assert.Equal(t, 0, h.client.polls)
	})
}

func TestConfigErrors(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("snapshot", "-ports", "nine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	_, _, err = h.run("snapshot", "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected argument")

	_, _, err = h.run("watch", "-interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-interval")

	assert.Equal(t, 0, h.client.polls)
}

func TestRootPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr, nil)
	require.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, stderr.String(), "snapshot")
	assert.Contains(t, stderr.String(), "watch")
}
