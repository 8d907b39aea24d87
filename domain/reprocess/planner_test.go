package reprocess

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanner_ShouldPlan_OnlyOncePerSrc(t *testing.T) {
	p := NewPlanner(nil, nil, slog.Default())
	require.True(t, p.ShouldPlan("doc-1"))
	require.False(t, p.ShouldPlan("doc-1"))
	require.True(t, p.ShouldPlan("doc-2"))
}

func TestPlanner_ResetSeen(t *testing.T) {
	p := NewPlanner(nil, nil, slog.Default())
	require.True(t, p.ShouldPlan("doc-1"))
	p.ResetSeen()
	require.True(t, p.ShouldPlan("doc-1"))
}

func TestDecision_Constants(t *testing.T) {
	require.Equal(t, Decision("none"), DecisionNone)
	require.Equal(t, Decision("selective"), DecisionSelective)
	require.Equal(t, Decision("full"), DecisionFull)
}
