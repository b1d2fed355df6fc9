package worksheet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCellIsIdle(t *testing.T) {
	t.Parallel()

	c := NewCell()
	require.Len(t, c.ID(), 32)
	require.False(t, c.Busy())
	_, ok := c.Index()
	require.False(t, ok)
	require.Empty(t, c.Input())
	require.Empty(t, c.Stdout())
	require.Empty(t, c.Stderr())
}

func TestCellIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 1000 {
		id := NewCell().ID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewCellWithIDKeepsID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fixed", NewCellWithID("fixed").ID())
}

func TestSetBusyClearsOutput(t *testing.T) {
	t.Parallel()

	c := NewCell()
	c.SetBusy(true)
	require.NoError(t, c.AccumulateStdout("out"))
	require.NoError(t, c.AccumulateStderr("err"))
	c.SetBusy(false)
	c.SetIndex(3)

	c.SetBusy(true)
	require.True(t, c.Busy())
	_, ok := c.Index()
	require.False(t, ok)
	require.Empty(t, c.Stdout())
	require.Empty(t, c.Stderr())
}

func TestLeavingBusyKeepsOutput(t *testing.T) {
	t.Parallel()

	c := NewCell()
	c.SetBusy(true)
	require.NoError(t, c.AccumulateStdout("a"))
	require.NoError(t, c.AccumulateStdout("b"))
	c.SetBusy(false)
	require.Equal(t, "ab", c.Stdout())
	_, ok := c.Index()
	require.False(t, ok)

	c.SetIndex(7)
	n, ok := c.Index()
	require.True(t, ok)
	require.Equal(t, 7, n)
}

func TestAccumulateWhileIdleFails(t *testing.T) {
	t.Parallel()

	c := NewCell()
	require.ErrorIs(t, c.AccumulateStdout("x"), ErrNotBusy)
	require.ErrorIs(t, c.AccumulateStderr("x"), ErrNotBusy)
	require.Empty(t, c.Stdout())
	require.Empty(t, c.Stderr())
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stdout string
		stderr string
		want   string
	}{
		{name: "stdout only", stdout: "a\n", want: "a"},
		{name: "both", stdout: "a\n", stderr: "err\n", want: "aerr"},
		{name: "stderr only", stderr: "boom \n", want: "boom"},
		{name: "empty", want: ""},
		{name: "ascii whitespace", stdout: "a \t\r\n\v\f", want: "a"},
		{name: "unicode spaces kept", stdout: "a\u00a0\u2003\u0085", want: "a\u00a0\u2003\u0085"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCell()
			c.SetBusy(true)
			require.NoError(t, c.AccumulateStdout(tc.stdout))
			require.NoError(t, c.AccumulateStderr(tc.stderr))
			c.SetBusy(false)
			require.Equal(t, tc.want, c.PlainText())
		})
	}
}

func TestSnapshotRestoresIdleCell(t *testing.T) {
	t.Parallel()

	c := NewCell()
	c.SetInput("1+1")
	c.SetBusy(true)
	require.NoError(t, c.AccumulateStdout("2\n"))
	c.SetBusy(false)
	c.SetIndex(4)

	restored := FromSnapshot(c.Snapshot())
	require.Equal(t, c.ID(), restored.ID())
	require.Equal(t, "1+1", restored.Input())
	require.Equal(t, "2\n", restored.Stdout())
	require.False(t, restored.Busy())
	n, ok := restored.Index()
	require.True(t, ok)
	require.Equal(t, 4, n)

	require.Nil(t, NewCell().Snapshot().Index)
}
