package deploy

import "strings"

// edgeIncompatMarkers are phrases the edge build tooling emits when the
// application reaches for capabilities the edge runtime does not provide.
// Appending to this list is safe; reordering changes which marker gets
// reported when several appear in one build.
var edgeIncompatMarkers = []string{
	"not supported in the Edge Runtime",
	"Node.js API is used",
	"Dynamic Code Evaluation",
	"edge runtime does not support Node.js",
}

// edgeIncompatReason returns the first incompatibility marker present in
// the build output, or an empty string when the output is clean.
func edgeIncompatReason(output string) string {
	for _, marker := range edgeIncompatMarkers {
		if strings.Contains(output, marker) {
			return marker
		}
	}
	return ""
}
