package taskcallback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSessionID_PreservesExisting(t *testing.T) {
	event := InputEvent{UserID: "u1", TaskID: "t1", SessionID: "existing-session"}
	resolved := resolveSessionID(event)
	require.Equal(t, "existing-session", resolved.SessionID)
}

func TestResolveSessionID_ReconstructsWhenMissing(t *testing.T) {
	event := InputEvent{UserID: "u1", TaskID: "t1"}
	resolved := resolveSessionID(event)
	require.NotEmpty(t, resolved.SessionID)
	require.Contains(t, resolved.SessionID, "scheduled-task-t1-")
}
