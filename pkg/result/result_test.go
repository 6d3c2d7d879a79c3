package result

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseInt(s string) Result[int] {
	n, err := strconv.Atoi(s)
	return From(n, err)
}

func TestOkAndErrVariants(t *testing.T) {
	t.Parallel()

	ok := Ok(42)
	require.True(t, ok.IsOk())
	require.False(t, ok.IsErr())
	require.Equal(t, 42, ok.Value())
	require.NoError(t, ok.Error())

	failed := Errf[int]("not a digit: %q", "x")
	require.True(t, failed.IsErr())
	require.EqualError(t, failed.Error(), `not a digit: "x"`)
	require.Equal(t, 0, failed.Value())
}

func TestErrWithNilStillFails(t *testing.T) {
	t.Parallel()

	r := Err[string](nil)
	require.True(t, r.IsErr())
}

func TestMapPassesFailureThrough(t *testing.T) {
	t.Parallel()

	doubled := Map(Ok(21), func(n int) int { return n * 2 })
	require.Equal(t, 42, doubled.Value())

	boom := errors.New("boom")
	called := false
	failed := Map(Err[int](boom), func(n int) int {
		called = true
		return n
	})
	require.False(t, called)
	require.ErrorIs(t, failed.Error(), boom)
}

func TestAndThenShortCircuits(t *testing.T) {
	t.Parallel()

	require.Equal(t, 42, AndThen(Ok("42"), parseInt).Value())

	r := AndThen(AndThen(Ok("x"), parseInt), func(n int) Result[int] {
		t.Fatal("must not run after a failure")
		return Ok(n)
	})
	require.True(t, r.IsErr())
}

func TestOrElseAndUnwrapOr(t *testing.T) {
	t.Parallel()

	recovered := OrElse(parseInt("x"), func(error) Result[int] { return Ok(-1) })
	require.Equal(t, -1, recovered.Value())

	require.Equal(t, 7, parseInt("x").UnwrapOr(7))
	require.Equal(t, 3, parseInt("3").UnwrapOr(7))
}

func TestMapErrAndAny(t *testing.T) {
	t.Parallel()

	wrapped := MapErr(parseInt("x"), func(err error) error { return errors.New("wrapped: " + err.Error()) })
	require.Contains(t, wrapped.Error().Error(), "wrapped:")

	erased := Ok([]string{"a"}).Any()
	require.Equal(t, []string{"a"}, erased.Value())
	require.Equal(t, "Ok([a])", Ok([]string{"a"}).String())
}
