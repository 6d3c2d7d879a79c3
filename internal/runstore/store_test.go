package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func openStore(t *testing.T) *Store {
	t.Helper()
	clock := &tickingClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpen_IsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := Open(path)
	require.NoError(t, err)
	run, err := first.Create(context.Background(), "text")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "The EU adopted\n\nthe GDPR in 2016.")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Equal(t, StatusPending, run.Status)
	require.Equal(t, "The EU adopted the GDPR in 2016.", run.InputPreview)

	require.NoError(t, store.MarkProcessing(ctx, run.ID))
	require.NoError(t, store.Complete(ctx, run.ID, Completion{
		Strategy:   "rules",
		RefineUsed: true,
		BriefPath:  "/tmp/out/brief.md",
	}))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, "rules", got.Strategy)
	require.True(t, got.RefineUsed)
	require.Equal(t, "/tmp/out/brief.md", got.BriefPath)
	require.Empty(t, got.Error)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_Fail(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	pending, err := store.Create(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, store.Fail(ctx, pending.ID, errors.New("planner offline")))

	got, err := store.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "planner offline", got.Error)

	processing, err := store.Create(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessing(ctx, processing.ID))
	require.NoError(t, store.Fail(ctx, processing.ID, nil))

	got, err = store.Get(ctx, processing.ID)
	require.NoError(t, err)
	require.Equal(t, "unknown error", got.Error)
}

func TestStore_RejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "a")
	require.NoError(t, err)

	require.ErrorIs(t, store.Complete(ctx, run.ID, Completion{}), ErrInvalidTransition)

	require.NoError(t, store.MarkProcessing(ctx, run.ID))
	require.ErrorIs(t, store.MarkProcessing(ctx, run.ID), ErrInvalidTransition)

	require.NoError(t, store.Complete(ctx, run.ID, Completion{}))
	require.ErrorIs(t, store.Fail(ctx, run.ID, errors.New("late")), ErrInvalidTransition)
}

func TestStore_UnknownRun(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.MarkProcessing(ctx, "missing"), ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	var ids []string
	for _, input := range []string{"first", "second", "third"} {
		run, err := store.Create(ctx, input)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, ids[2], all[0].ID)
	require.Equal(t, ids[0], all[2].ID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "third", limited[0].InputPreview)
}

func TestPreview_Truncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 60)
	got := preview(long)
	require.True(t, strings.HasSuffix(got, "…"))
	require.Len(t, []rune(got), previewLimit+1)
}
