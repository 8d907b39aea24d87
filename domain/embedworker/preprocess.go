package embedworker

import "strings"

// preprocessText trims, collapses internal whitespace, and strips NUL
// bytes (which Postgres text columns reject outright) before a micro-chunk
// is handed to the embedding and QA-summary clients.
func preprocessText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// approxTokenCount is a cheap whitespace-based token estimate used when the
// embedding/QA clients don't report an authoritative count. Good enough
// for the operator-facing token_count column, which is diagnostic, not
// billed against.
func approxTokenCount(s string) int {
	return len(strings.Fields(s))
}
