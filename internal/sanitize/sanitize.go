package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRegex  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	jsSchemeRegex     = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRegex = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// Sanitize strips script blocks, javascript: URI schemes, and inline event
// handler attributes from text of user or network origin, then trims
// surrounding whitespace. Removal can splice two fragments into a new match,
// so the patterns are reapplied until the text reaches a fixpoint; the result
// never changes under a second application. Input that matches none of the
// patterns passes through unchanged.
func Sanitize(input string) string {
	cleaned := input
	for {
		next := scriptBlockRegex.ReplaceAllString(cleaned, "")
		next = jsSchemeRegex.ReplaceAllString(next, "")
		next = eventHandlerRegex.ReplaceAllString(next, "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.TrimSpace(cleaned)
}

// Truncate caps s at max characters without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
