// Package tracestore persists blackboard trace snapshots, either as one JSON
// file per snapshot or as a per-run Redis list.
package tracestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
)

// FileSink writes each snapshot to <dir>/<YYYYmmddTHHMMSSmmmZ>_rev<NNNNNN>.json.
type FileSink struct {
	mu  sync.Mutex
	dir string
}

var _ blackboard.Sink = (*FileSink)(nil)

// NewFileSink creates dir when missing and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("trace dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Dir returns the directory snapshots are written to.
func (s *FileSink) Dir() string { return s.dir }

// Record implements blackboard.Sink.
func (s *FileSink) Record(snapshot blackboard.TraceSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snapshot.Seq, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := FileName(snapshot)
	path := filepath.Join(s.dir, base)
	if _, err := os.Stat(path); err == nil {
		// same millisecond and revision: keep both
		path = filepath.Join(s.dir, fmt.Sprintf("%s_seq%04d.json", strings.TrimSuffix(base, ".json"), snapshot.Seq))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// FileName returns the file name used for snapshot.
func FileName(snapshot blackboard.TraceSnapshot) string {
	ts, err := time.Parse(blackboard.TimestampFormat, snapshot.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	ts = ts.UTC()
	return fmt.Sprintf("%s%03dZ_rev%06d.json", ts.Format("20060102T150405"), ts.Nanosecond()/int(time.Millisecond), snapshot.Revision)
}

// ReadDir loads every snapshot in dir, ordered by sequence number.
func ReadDir(dir string) ([]blackboard.TraceSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read trace dir: %w", err)
	}

	var snapshots []blackboard.TraceSnapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var snapshot blackboard.TraceSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Name(), err)
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].Timestamp != snapshots[j].Timestamp {
			return snapshots[i].Timestamp < snapshots[j].Timestamp
		}
		return snapshots[i].Seq < snapshots[j].Seq
	})
	return snapshots, nil
}
