package kit

import "strings"

// DefaultIntentKeywords mark a submission as a new build request.
var DefaultIntentKeywords = []string{"build", "find", "kit"}

// IsBuildIntent reports whether text, lower-cased, contains any keyword.
// It is a substring heuristic: "kitchen" counts as a build intent.
func IsBuildIntent(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
