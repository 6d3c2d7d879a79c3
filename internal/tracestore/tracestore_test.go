package tracestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 891_000_000, time.UTC)
	return func() time.Time { return ts }
}

func setupRedis(t *testing.T, opts RedisOptions) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestFileName(t *testing.T) {
	t.Parallel()

	name := FileName(blackboard.TraceSnapshot{Timestamp: "2025-03-04T05:06:07.891234Z", Revision: 12})
	require.Equal(t, "20250304T050607891Z_rev000012.json", name)
}

func TestFileSink_WritesEverySnapshot(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "trace")
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	require.Equal(t, dir, sink.Dir())

	bb := blackboard.New(blackboard.WithClock(fixedClock()), blackboard.WithSink(sink))
	bb.Put("k", "v")
	bb.Trace("first")
	bb.Trace("second")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "20250304T050607891Z_rev000001.json", entries[0].Name())

	loaded, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "first", loaded[0].Note)
	require.Equal(t, "second", loaded[1].Note)
	require.Equal(t, "v", loaded[0].Data["k"])
}

func TestFileSink_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewFileSink(" ")
	require.Error(t, err)

	missing, err := ReadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, missing)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	_, err = ReadDir(dir)
	require.Error(t, err)
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	t.Parallel()

	store, mr := setupRedis(t, RedisOptions{TTL: time.Hour})
	require.NoError(t, store.Ping(context.Background()))

	bb := blackboard.New(blackboard.WithClock(fixedClock()), blackboard.WithSink(store.Sink("run-1")))
	bb.Put("input_text", "hello")
	bb.Trace("planner: initial plan ready (static)")
	bb.Put("parsed_chunks", []string{"hello"})
	bb.Trace("executor: initial step parse done")

	key := TraceKey("", "run-1")
	require.Equal(t, "interlines:run-1:traces", key)
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Hour, mr.TTL(key))

	loaded, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, 1, loaded[0].Revision)
	require.Equal(t, 2, loaded[1].Revision)
	require.Equal(t, "executor: initial step parse done", loaded[1].Note)
	require.Equal(t, bb.Traces()[1].Timestamp, loaded[1].Timestamp)
}

func TestRedisStore_LoadMissingRun(t *testing.T) {
	t.Parallel()

	store, _ := setupRedis(t, RedisOptions{})
	_, err := store.Load(context.Background(), "ghost")
	require.True(t, IsNotFound(err))
	require.False(t, IsNotFound(errors.New("other")))
}

func TestRedisStore_Runs(t *testing.T) {
	t.Parallel()

	store, mr := setupRedis(t, RedisOptions{Prefix: "test"})
	ctx := context.Background()
	for _, run := range []string{"b", "a"} {
		require.NoError(t, store.Append(ctx, run, blackboard.TraceSnapshot{Seq: 1}))
	}
	require.NoError(t, mr.Set("test:unrelated", "x"))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, runs)
	require.Equal(t, time.Duration(0), mr.TTL("test:a:traces"))
}

func TestRedisStore_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(nil, RedisOptions{})
	require.Error(t, err)

	store, _ := setupRedis(t, RedisOptions{})
	require.Error(t, store.Append(context.Background(), "", blackboard.TraceSnapshot{}))
}

func TestRedisStore_SinkFailureDoesNotBreakTrace(t *testing.T) {
	t.Parallel()

	store, mr := setupRedis(t, RedisOptions{})
	mr.Close()

	bb := blackboard.New(blackboard.WithSink(store.Sink("run-x")))
	bb.Trace("still recorded")
	require.Len(t, bb.Traces(), 1)
}

func TestCompareKeys(t *testing.T) {
	t.Parallel()

	before := blackboard.TraceSnapshot{Data: map[string]any{
		"input_text":    "hello",
		"parsed_chunks": []any{"a"},
		"scratch":       true,
	}}
	after := blackboard.TraceSnapshot{Data: map[string]any{
		"input_text":    "hello",
		"parsed_chunks": []any{"a", "b"},
		"review_report": map[string]any{"overall": 0.8},
		"explanations":  []any{},
	}}

	changes := CompareKeys(before, after)
	require.Equal(t, []string{"explanations", "review_report"}, changes.Added)
	require.Equal(t, []string{"scratch"}, changes.Removed)
	require.Equal(t, []string{"parsed_chunks"}, changes.Changed)
	require.False(t, changes.Empty())
	require.True(t, CompareKeys(after, after).Empty())
}

func TestDiff(t *testing.T) {
	t.Parallel()

	before := blackboard.TraceSnapshot{Seq: 1, Revision: 1, Note: "parse done", Data: map[string]any{"input_text": "hello"}}
	after := blackboard.TraceSnapshot{Seq: 2, Revision: 2, Note: "translate done", Data: map[string]any{"input_text": "hello", "terms": []any{"GDPR"}}}

	out, err := Diff(before, after, 2)
	require.NoError(t, err)
	require.Contains(t, out, "--- #1 rev 1 parse done")
	require.Contains(t, out, "+++ #2 rev 2 translate done")
	require.Contains(t, out, `+  "terms": [`)

	same, err := Diff(after, after, 2)
	require.NoError(t, err)
	require.Empty(t, same)
}
