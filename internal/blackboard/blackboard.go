// Package blackboard implements the revisioned key/value store shared by all
// pipeline steps, together with its append-only list of trace snapshots.
package blackboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jalkey-Chen/InterLines/internal/logger"
)

// TimestampFormat is the UTC layout used for trace timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// TraceSnapshot is an immutable copy of the store at one point in time.
type TraceSnapshot struct {
	Seq       int            `json:"seq"`
	Timestamp string         `json:"timestamp"`
	Revision  int            `json:"revision"`
	Note      string         `json:"note,omitempty"`
	Data      map[string]any `json:"data"`
}

// Sink receives every snapshot as it is captured.
type Sink interface {
	Record(snapshot TraceSnapshot) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(TraceSnapshot) error

// Record implements Sink.
func (f SinkFunc) Record(snapshot TraceSnapshot) error { return f(snapshot) }

// Option configures a Blackboard.
type Option func(*Blackboard)

// WithClock overrides the time source used for trace timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Blackboard) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSink forwards every captured snapshot to sink.
func WithSink(sink Sink) Option {
	return func(b *Blackboard) {
		if sink != nil {
			b.sinks = append(b.sinks, sink)
		}
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(log *logger.Logger) Option {
	return func(b *Blackboard) {
		b.log = log
	}
}

// Blackboard is the run-scoped store through which steps communicate. A run
// owns exactly one Blackboard; the lock only guards readers such as trace
// sinks or inspectors against the single writing executor.
type Blackboard struct {
	mu       sync.RWMutex
	store    map[string]any
	revision int
	traces   []TraceSnapshot

	now   func() time.Time
	sinks []Sink
	log   *logger.Logger
}

// New returns an empty Blackboard.
func New(opts ...Option) *Blackboard {
	b := &Blackboard{
		store: make(map[string]any),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Put stores value under key, replacing any previous value, and bumps the revision.
func (b *Blackboard) Put(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store[key] = value
	b.revision++
}

// Get returns the value stored under key.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.store[key]
	return value, ok
}

// GetOr returns the value stored under key or def when absent.
func (b *Blackboard) GetOr(key string, def any) any {
	if value, ok := b.Get(key); ok {
		return value
	}
	return def
}

// Has reports whether key is present.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Keys returns the current key names in sorted order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.store))
	for key := range b.store {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.store)
}

// Revision returns the number of Put calls made so far.
func (b *Blackboard) Revision() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Trace captures a snapshot of the whole store, appends it to the trace log
// and forwards it to the configured sinks.
func (b *Blackboard) Trace(note string) TraceSnapshot {
	b.mu.Lock()
	data := make(map[string]any, len(b.store))
	for key, value := range b.store {
		data[key] = sanitize(value)
	}
	snapshot := TraceSnapshot{
		Seq:       len(b.traces),
		Timestamp: b.now().UTC().Format(TimestampFormat),
		Revision:  b.revision,
		Note:      note,
		Data:      data,
	}
	b.traces = append(b.traces, snapshot)
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Record(cloneSnapshot(snapshot)); err != nil {
			b.log.WarnErr(err, "trace sink failed")
		}
	}

	return cloneSnapshot(snapshot)
}

// Traces returns the captured snapshots in capture order.
func (b *Blackboard) Traces() []TraceSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TraceSnapshot, len(b.traces))
	for i, snapshot := range b.traces {
		out[i] = cloneSnapshot(snapshot)
	}
	return out
}

// sanitize converts value into plain JSON data (maps, slices, strings,
// float64, bool, nil). Values that cannot be encoded are rendered as text.
func sanitize(value any) any {
	if value == nil {
		return nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return decoded
}

func cloneSnapshot(s TraceSnapshot) TraceSnapshot {
	data := make(map[string]any, len(s.Data))
	for key, value := range s.Data {
		data[key] = cloneJSON(value)
	}
	s.Data = data
	return s
}

func cloneJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneJSON(item)
		}
		return out
	default:
		return v
	}
}
