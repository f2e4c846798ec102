package orchestrator

import (
	"regexp"
	"strings"
)

// Deterministic early-exit for voice UX: if the caller asks to stop, end
// politely without touching the generation provider. This keeps a hangup
// reachable even when that provider is degraded. The list is conservative to
// avoid false positives.
var exitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnot now\b`),
	regexp.MustCompile(`\bcall me back\b`),
	regexp.MustCompile(`\b(can you )?call back\b`),
	regexp.MustCompile(`\bi'?m busy\b`),
	regexp.MustCompile(`\bbusy right now\b`),
	regexp.MustCompile(`\bstop\b`),
	regexp.MustCompile(`\bhang up\b`),
	regexp.MustCompile(`\bgoodbye\b`),
	regexp.MustCompile(`\bbye\b`),
	regexp.MustCompile(`\bno thanks\b`),
	regexp.MustCompile(`\bnot interested\b`),
}

func wantsToEndCall(speech string) bool {
	text := strings.ToLower(strings.TrimSpace(speech))
	if text == "" {
		return false
	}
	for _, p := range exitPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
