package audit

import (
	"encoding/json"
	"regexp"
)

// Patterns that look like PHI values rather than field names: a formatted
// social insurance number, a ten-digit health card number, an email address.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{3}-\d{3}-\d{3}`),
	regexp.MustCompile(`\d{10}`),
	regexp.MustCompile(`@.*\.(com|ca|org)`),
}

// looksLikeValue reports whether the accessed-fields list appears to contain
// PHI values instead of field names. It is a tripwire for programming errors
// upstream: a hit is logged and counted but never blocks the access, because
// refusing to record would lose the trail entirely.
func looksLikeValue(fields []string) bool {
	serialized, err := json.Marshal(fields)
	if err != nil {
		return false
	}
	for _, p := range valuePatterns {
		if p.Match(serialized) {
			return true
		}
	}
	return false
}
