package embedstatus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimSrc_StripsAfterFirstJSON(t *testing.T) {
	require.Equal(t, "docs/report.json", trimSrc("docs/report.json-3.chunks.json"))
	require.Equal(t, "docs/report.json", trimSrc("docs/report.json"))
}

func TestTrimSrc_NoJSONSuffixReturnsUnchanged(t *testing.T) {
	require.Equal(t, "docs/report", trimSrc("docs/report"))
}
