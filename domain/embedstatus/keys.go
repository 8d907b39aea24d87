package embedstatus

import "strings"

// trimSrc derives trimmed_src from a raw src key: everything up to and
// including the first ".json" suffix, the content-addressed document key
// used throughout the progress record.
func trimSrc(src string) string {
	if idx := strings.Index(src, ".json"); idx >= 0 {
		return src[:idx+len(".json")]
	}
	return src
}
