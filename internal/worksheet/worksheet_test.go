package worksheet

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func inputs(w *Worksheet) []string {
	var out []string
	for c := range w.All() {
		out = append(out, c.Input())
	}
	return out
}

// requireConsistent checks that order and mapping agree one to one.
func requireConsistent(t *testing.T, w *Worksheet) {
	t.Helper()
	require.Equal(t, len(w.order), len(w.cells))
	require.Equal(t, len(w.order), w.Len())
	seen := make(map[string]bool, len(w.order))
	for _, id := range w.order {
		require.False(t, seen[id], "id %s listed twice", id)
		seen[id] = true
		c, ok := w.cells[id]
		require.True(t, ok, "id %s missing from mapping", id)
		require.Equal(t, id, c.ID())
	}
	require.Positive(t, w.Len())
}

func TestNewDefault(t *testing.T) {
	t.Parallel()

	w := NewDefault()
	require.Equal(t, 4, w.Len())
	require.Equal(t, []string{
		"123",
		"123^2",
		"def f(x):\n    return 1",
		"for i in range(10):  # test\n    print i\n    sleep(0.4)\n",
	}, inputs(w))
	requireConsistent(t, w)
}

func TestNewHoldsBlankCell(t *testing.T) {
	t.Parallel()

	w := New()
	require.Equal(t, 1, w.Len())
	c, err := w.At(0)
	require.NoError(t, err)
	require.Empty(t, c.Input())
}

func TestInsertAndAppendOrder(t *testing.T) {
	t.Parallel()

	a, b, c := NewCell(), NewCell(), NewCell()
	a.SetInput("a")
	b.SetInput("b")
	c.SetInput("c")

	w, err := FromCells(a)
	require.NoError(t, err)
	require.NoError(t, w.Append(c))
	require.NoError(t, w.Insert(1, b))
	require.Equal(t, []string{"a", "b", "c"}, inputs(w))

	pos, err := w.PositionOf(c)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
	requireConsistent(t, w)
}

func TestInsertRejectsBadPosition(t *testing.T) {
	t.Parallel()

	w := New()
	require.ErrorIs(t, w.Insert(-1, NewCell()), ErrPositionOutOfRange)
	require.ErrorIs(t, w.Insert(2, NewCell()), ErrPositionOutOfRange)
	require.NoError(t, w.Insert(1, NewCell()))
	requireConsistent(t, w)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	w := New()
	c := NewCellWithID("dup")
	require.NoError(t, w.Append(c))
	require.ErrorIs(t, w.Append(NewCellWithID("dup")), ErrDuplicateCell)
	require.Equal(t, 2, w.Len())
	requireConsistent(t, w)

	_, err := FromCells(NewCellWithID("x"), NewCellWithID("x"))
	require.ErrorIs(t, err, ErrDuplicateCell)
}

func TestDeleteLastCellRefills(t *testing.T) {
	t.Parallel()

	w := New()
	only, err := w.At(0)
	require.NoError(t, err)
	only.SetInput("gone")

	blank, err := w.Delete(only)
	require.NoError(t, err)
	require.NotNil(t, blank)
	require.NotEqual(t, only.ID(), blank.ID())
	require.Equal(t, 1, w.Len())

	c, err := w.At(0)
	require.NoError(t, err)
	require.Same(t, blank, c)
	require.Empty(t, c.Input())
	require.False(t, c.Busy())
	require.Empty(t, c.Stdout())
	require.Empty(t, c.Stderr())
	_, ok := c.Index()
	require.False(t, ok)
	requireConsistent(t, w)
}

func TestDeleteMiddle(t *testing.T) {
	t.Parallel()

	w := NewDefault()
	second, err := w.At(1)
	require.NoError(t, err)
	blank, err := w.Delete(second)
	require.NoError(t, err)
	require.Nil(t, blank)
	require.Equal(t, 3, w.Len())
	_, err = w.Cell(second.ID())
	require.ErrorIs(t, err, ErrCellNotFound)

	_, err = w.Delete(second)
	require.ErrorIs(t, err, ErrCellNotFound)
	requireConsistent(t, w)
}

func TestLookupFaults(t *testing.T) {
	t.Parallel()

	w := NewDefault()
	_, err := w.PositionOf(NewCell())
	require.ErrorIs(t, err, ErrCellNotFound)
	_, err = w.Cell("nope")
	require.ErrorIs(t, err, ErrCellNotFound)
}

func TestAtNegativeIndex(t *testing.T) {
	t.Parallel()

	w := NewDefault()
	last, err := w.At(-1)
	require.NoError(t, err)
	require.Equal(t, "for i in range(10):  # test\n    print i\n    sleep(0.4)\n", last.Input())

	first, err := w.At(-4)
	require.NoError(t, err)
	require.Equal(t, "123", first.Input())

	_, err = w.At(-5)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = w.At(4)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestAllIsRestartable(t *testing.T) {
	t.Parallel()

	w := NewDefault()
	seq := w.All()
	var first, second []string
	for c := range seq {
		first = append(first, c.ID())
	}
	for c := range seq {
		second = append(second, c.ID())
	}
	require.Equal(t, first, second)

	var stopped int
	for range seq {
		stopped++
		if stopped == 2 {
			break
		}
	}
	require.Equal(t, 2, stopped)
	require.Len(t, w.Cells(), 4)
}

func TestRandomOperationsKeepOrderConsistent(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	w := New()
	for range 2000 {
		switch rng.IntN(3) {
		case 0:
			require.NoError(t, w.Insert(rng.IntN(w.Len()+1), NewCell()))
		case 1:
			require.NoError(t, w.Append(NewCell()))
		case 2:
			c, err := w.At(rng.IntN(w.Len()))
			require.NoError(t, err)
			_, err = w.Delete(c)
			require.NoError(t, err)
		}
		requireConsistent(t, w)
	}
}
