package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChildStatus_IsLegalTransition(t *testing.T) {
	cases := []struct {
		from, to ChildStatus
		want     bool
	}{
		{"", ChildStarting, true},
		{ChildStarting, ChildProcessing, true},
		{ChildStarting, ChildFailed, true},
		{ChildStarting, ChildCompleted, false},
		{ChildProcessing, ChildCompleted, true},
		{ChildProcessing, ChildFailed, true},
		{ChildProcessing, ChildStarting, false},
		{ChildCompleted, ChildProcessing, false},
		{ChildFailed, ChildProcessing, false},
		{ChildCompleted, ChildFailed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.from.IsLegalTransition(tc.to), "from=%s to=%s", tc.from, tc.to)
	}
}

func TestChildStatus_IsTerminal(t *testing.T) {
	require.True(t, ChildCompleted.IsTerminal())
	require.True(t, ChildFailed.IsTerminal())
	require.False(t, ChildStarting.IsTerminal())
	require.False(t, ChildProcessing.IsTerminal())
}

func TestAggregateParentStatus_Empty(t *testing.T) {
	require.Equal(t, ParentStarting, AggregateParentStatus(nil))
	require.Equal(t, ParentStarting, AggregateParentStatus(map[string]ChildEntry{}))
}

func TestAggregateParentStatus_AnyFailedWins(t *testing.T) {
	children := map[string]ChildEntry{
		"a": {Status: ChildCompleted},
		"b": {Status: ChildFailed},
		"c": {Status: ChildProcessing},
	}
	require.Equal(t, ParentFailed, AggregateParentStatus(children))
}

func TestAggregateParentStatus_AllCompleted(t *testing.T) {
	children := map[string]ChildEntry{
		"a": {Status: ChildCompleted},
		"b": {Status: ChildCompleted},
	}
	require.Equal(t, ParentCompleted, AggregateParentStatus(children))
}

func TestAggregateParentStatus_StillProcessing(t *testing.T) {
	children := map[string]ChildEntry{
		"a": {Status: ChildCompleted},
		"b": {Status: ChildProcessing},
	}
	require.Equal(t, ParentProcessing, AggregateParentStatus(children))
}

func TestParentStatus_IsTerminal(t *testing.T) {
	require.True(t, ParentCompleted.IsTerminal())
	require.True(t, ParentFailed.IsTerminal())
	require.False(t, ParentStarting.IsTerminal())
	require.False(t, ParentProcessing.IsTerminal())
}
