package progress

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCoordinator(t *testing.T) {
	log := slog.Default()
	repo := NewRepository(nil, log)
	coord := NewCoordinator(nil, repo, log)
	require.NotNil(t, coord)
	require.NotNil(t, coord.log)
}
