package compute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankCompletions(t *testing.T) {
	t.Parallel()

	names := []string{"factor", "factorial", "fact", "facade", "integrate", "float"}
	require.Equal(t, []string{"fact", "factor", "factorial", "facade"}, rankCompletions("fact", names, 0))
	require.Equal(t, []string{"fact", "factor"}, rankCompletions("fact", names, 2))
	// one typo allowed per three characters
	require.Equal(t, []string{"integrate"}, rankCompletions("intgra", names, 0))
	require.Empty(t, rankCompletions("zz", names, 0))
}
