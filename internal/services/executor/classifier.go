package executor

import (
	"strings"

	"github.com/socialgrab/downorc/internal/models"
)

var hardKillSubstrings = []string{
	"ssl: unexpected_eof", "ssl_error_eof", "403 forbidden", "429 too many",
	"sign in to confirm", "login required", "private video", "age-restricted",
}

var stallSubstrings = []string{
	"download stalled", "connection timeout", "incomplete read",
	"no progress", "connection reset", "server disconnected",
}

var transientSubstrings = []string{
	"unable to extract", "no video formats", "connection reset", "timed out",
}

var permanentSubstrings = []string{
	"private", "login", "sign in", "age", "region", "not available",
	"copyright", "removed", "deleted", "unavailable", "blocked", "restricted", "nsfw",
}

// Classify assigns one of HARD_KILL / STALL / PROVIDER_BUG to a
// provider's raw error text (§4.5). Matching is substring-based and
// case-insensitive; the HARD_KILL table is checked first, then STALL,
// with anything else falling to PROVIDER_BUG.
func Classify(errorText string) models.ErrorClass {
	lower := strings.ToLower(errorText)

	for _, substr := range hardKillSubstrings {
		if strings.Contains(lower, substr) {
			return models.ErrorClassHardKill
		}
	}
	for _, substr := range stallSubstrings {
		if strings.Contains(lower, substr) {
			return models.ErrorClassStall
		}
	}
	return models.ErrorClassProviderBug
}

// IsTransientRetryable reports whether errorText matches the
// single-provider-retry heuristic used for the tiktok/pinterest source
// keys (§4.5): transient AND not permanent.
func IsTransientRetryable(errorText string) bool {
	lower := strings.ToLower(errorText)

	matchesTransient := false
	for _, substr := range transientSubstrings {
		if strings.Contains(lower, substr) {
			matchesTransient = true
			break
		}
	}
	if !matchesTransient {
		return false
	}

	for _, substr := range permanentSubstrings {
		if strings.Contains(lower, substr) {
			return false
		}
	}
	return true
}
