package embedstore

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	log := slog.Default()
	repo := NewRepository(nil, log)
	require.NotNil(t, repo)
	require.NotNil(t, repo.log)
}

func TestCountResult_ZeroValue(t *testing.T) {
	var c CountResult
	require.Equal(t, 0, c.Total)
	require.Equal(t, 0, c.WithChildChunk)
}
