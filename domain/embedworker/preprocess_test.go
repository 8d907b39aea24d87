package embedworker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocessText_CollapsesWhitespaceAndStripsNul(t *testing.T) {
	in := "  hello\t\tworld\x00\n\n  foo  "
	require.Equal(t, "hello world foo", preprocessText(in))
}

func TestPreprocessText_Empty(t *testing.T) {
	require.Equal(t, "", preprocessText("   \x00  "))
}

func TestApproxTokenCount(t *testing.T) {
	require.Equal(t, 3, approxTokenCount("one two three"))
	require.Equal(t, 0, approxTokenCount(""))
}
