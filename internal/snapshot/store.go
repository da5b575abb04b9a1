// Package snapshot persists collections as numbered snapshots on disk.
//
// Layout:
//
//	<dir>/snapshot.index        JSON list of Entry
//	<dir>/<number>/<label>.json one file per source
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dm/yb-stats/internal/model"
)

// DefaultDir is the snapshot directory used when none is configured.
const DefaultDir = "yb_stats.snapshots"

const indexFile = "snapshot.index"

// Labels of the per-source files in a snapshot directory.
const (
	LabelMetrics       = "metrics"
	LabelNodeExporter  = "node_exporter"
	LabelVars          = "vars"
	LabelMasters       = "masters"
	LabelTabletServers = "tablet_servers"
	LabelIsLeader      = "is_leader"
	LabelMemTrackers   = "mem_trackers"
)

// ErrNotFound is returned when a snapshot number or label does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Entry describes one snapshot in the index.
type Entry struct {
	Number    int       `json:"number"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment,omitempty"`
}

// Store reads and writes snapshots below one directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create snapshot directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir is the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// List returns every snapshot in the index, oldest first. A store without
// an index has no snapshots.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

func (s *Store) readIndex() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot index")
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode snapshot index")
	}
	return entries, nil
}

// Find returns the index entry for number.
func (s *Store) Find(number int) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Number == number {
			return e, nil
		}
	}
	return Entry{}, errors.Wrapf(ErrNotFound, "snapshot %d", number)
}

// Next allocates the next snapshot number, records it in the index and
// creates its directory.
func (s *Store) Next(comment string, at time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readIndex()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Number: nextNumber(entries), Timestamp: at, Comment: comment}
	if err := os.MkdirAll(s.snapshotDir(entry.Number), 0o755); err != nil {
		return Entry{}, errors.Wrapf(err, "create snapshot %d directory", entry.Number)
	}
	if err := s.writeIndex(append(entries, entry)); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func nextNumber(entries []Entry) int {
	next := 0
	for _, e := range entries {
		if e.Number >= next {
			next = e.Number + 1
		}
	}
	return next
}

func (s *Store) writeIndex(entries []Entry) error {
	if err := writeJSON(filepath.Join(s.dir, indexFile), entries); err != nil {
		return errors.Wrap(err, "write snapshot index")
	}
	return nil
}

func (s *Store) snapshotDir(number int) string {
	return filepath.Join(s.dir, strconv.Itoa(number))
}

func (s *Store) path(number int, label string) string {
	return filepath.Join(s.snapshotDir(number), label+".json")
}

// Save writes v as the label file of snapshot number.
func (s *Store) Save(number int, label string, v any) error {
	if err := writeJSON(s.path(number, label), v); err != nil {
		return errors.Wrapf(err, "save snapshot %d %s", number, label)
	}
	return nil
}

// Load decodes the label file of snapshot number into v.
func (s *Store) Load(number int, label string, v any) error {
	data, err := os.ReadFile(s.path(number, label))
	if errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(ErrNotFound, "snapshot %d has no %s data", number, label)
	}
	if err != nil {
		return errors.Wrapf(err, "read snapshot %d %s", number, label)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decode snapshot %d %s", number, label)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SaveSnapshot allocates a new number and writes every source of snap. The
// index entry is written last; on failure the snapshot directory is removed
// and the index is left untouched.
func (s *Store) SaveSnapshot(comment string, snap *model.Snapshot) (_ Entry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readIndex()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Number: nextNumber(entries), Timestamp: snap.FetchedAt, Comment: comment}
	dir := s.snapshotDir(entry.Number)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, errors.Wrapf(err, "create snapshot %d directory", entry.Number)
	}
	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, os.RemoveAll(dir))
		}
	}()

	files := []struct {
		label string
		v     any
	}{
		{LabelMetrics, snap.Metrics},
		{LabelNodeExporter, snap.NodeExporter},
		{LabelVars, snap.Vars},
		{LabelMasters, snap.Masters},
		{LabelTabletServers, snap.TabletServers},
		{LabelIsLeader, snap.Leaders},
		{LabelMemTrackers, snap.MemTrackers},
	}
	for _, f := range files {
		if err := s.Save(entry.Number, f.label, f.v); err != nil {
			return Entry{}, err
		}
	}
	if err := s.writeIndex(append(entries, entry)); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// LoadSnapshot reads every source of snapshot number. FetchedAt is the
// timestamp recorded in the index.
func (s *Store) LoadSnapshot(number int) (*model.Snapshot, error) {
	entry, err := s.Find(number)
	if err != nil {
		return nil, err
	}
	snap := &model.Snapshot{FetchedAt: entry.Timestamp}
	files := []struct {
		label string
		v     any
	}{
		{LabelMetrics, &snap.Metrics},
		{LabelNodeExporter, &snap.NodeExporter},
		{LabelVars, &snap.Vars},
		{LabelMasters, &snap.Masters},
		{LabelTabletServers, &snap.TabletServers},
		{LabelIsLeader, &snap.Leaders},
		{LabelMemTrackers, &snap.MemTrackers},
	}
	for _, f := range files {
		if err := s.Load(number, f.label, f.v); err != nil {
			return nil, err
		}
	}
	return snap, nil
}
