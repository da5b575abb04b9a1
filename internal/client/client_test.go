package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer starts an httptest server and returns a client plus the
// server's hostname:port.
func newTestServer(t *testing.T, h http.HandlerFunc) (*DefaultClient, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewDefaultClient(ClientConfig{RequestTimeout: 5 * time.Second})
	return c, strings.TrimPrefix(srv.URL, "http://")
}

func TestGetMetrics(t *testing.T) {
	c, hp := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metrics", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[]`))
	})

	body, err := c.GetMetrics(context.Background(), hp)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestEndpointPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(c *DefaultClient, hp string) ([]byte, error)
	}{
		{"varz", "/api/v1/varz", func(c *DefaultClient, hp string) ([]byte, error) {
			return c.GetVarz(context.Background(), hp)
		}},
		{"masters", "/api/v1/masters", func(c *DefaultClient, hp string) ([]byte, error) {
			return c.GetMasters(context.Background(), hp)
		}},
		{"tablet servers", "/api/v1/tablet-servers", func(c *DefaultClient, hp string) ([]byte, error) {
			return c.GetTabletServers(context.Background(), hp)
		}},
		{"mem trackers", "/mem-trackers", func(c *DefaultClient, hp string) ([]byte, error) {
			return c.GetMemTrackers(context.Background(), hp)
		}},
		{"node exporter", "/metrics", func(c *DefaultClient, hp string) ([]byte, error) {
			return c.GetNodeExporter(context.Background(), hp)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, hp := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.path, r.URL.Path)
				_, _ = w.Write([]byte("ok"))
			})
			body, err := tc.call(c, hp)
			require.NoError(t, err)
			assert.Equal(t, "ok", string(body))
		})
	}
}

func TestGet_Non2xxIsError(t *testing.T) {
	c, hp := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such page"))
	})

	_, err := c.GetVarz(context.Background(), hp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "GetVarz")
}

func TestGet_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "yugabyte", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewDefaultClient(ClientConfig{Username: "yugabyte", Password: "secret"})
	_, err := c.GetMetrics(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
}

func TestIsLeader(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{"leader", http.StatusOK, true, false},
		{"follower", http.StatusServiceUnavailable, false, false},
		{"not a master", http.StatusNotFound, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, hp := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/is-leader", r.URL.Path)
				w.WriteHeader(tc.status)
			})
			got, err := c.IsLeader(context.Background(), hp)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	c, hp := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetMetrics(ctx, hp)
	assert.Error(t, err)
}

func TestURL_Scheme(t *testing.T) {
	assert.Equal(t, "http://h:7000/metrics", NewDefaultClient(ClientConfig{}).url("h:7000", "/metrics"))
	assert.Equal(t, "https://h:7000/metrics", NewDefaultClient(ClientConfig{HTTPS: true}).url("h:7000", "/metrics"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc"), 5))
	assert.Equal(t, "ab...", truncate([]byte("abcdef"), 2))
}
