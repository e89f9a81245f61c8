package errormap

import "strings"

// TemplateKey is the exactly-one user-facing category every internal
// error string maps to (§4.8). The source order of the table below
// resolves ambiguity when multiple substrings would otherwise match.
type TemplateKey string

const (
	KeyPrivate     TemplateKey = "private"
	KeyTooLarge    TemplateKey = "too_large"
	KeyNotFound    TemplateKey = "not_found"
	KeyTimeout     TemplateKey = "timeout"
	KeyUnavailable TemplateKey = "unavailable"
	KeyRegion      TemplateKey = "region"
	KeyProcessing  TemplateKey = "processing"
	KeyConnection  TemplateKey = "connection"
	KeyAPI         TemplateKey = "api"
	KeyStory       TemplateKey = "story"
	KeyUnknown     TemplateKey = "unknown"
	KeyNoURL       TemplateKey = "no_url"
	KeyInvalidURL  TemplateKey = "invalid_url"
)

type rule struct {
	key        TemplateKey
	substrings []string
}

// table order is significant: the first matching rule wins.
var table = []rule{
	{KeyPrivate, []string{"private", "login required", "sign in to confirm", "age-restricted", "age restricted"}},
	{KeyTooLarge, []string{"too large", "file size", "exceeds the maximum"}},
	{KeyRegion, []string{"region", "geo", "not available in your country"}},
	{KeyNotFound, []string{"not found", "removed", "deleted", "404"}},
	{KeyTimeout, []string{"timed out", "timeout", "stalled", "no progress"}},
	{KeyUnavailable, []string{"unavailable", "blocked", "restricted", "nsfw", "copyright"}},
	{KeyProcessing, []string{"ffmpeg", "probe", "post-processing", "transcode"}},
	{KeyConnection, []string{"connection reset", "connection timeout", "broken pipe", "ssl", "server disconnected", "closing transport"}},
	{KeyAPI, []string{"rapidapi", "savenow", "status 4", "status 5", "bad request"}},
}

// Map converts a raw internal error string into exactly one
// user-facing template key. Never returns the raw string itself — the
// caller renders the key into a localized, static message (§4.8,
// §7 "no provider/SSL/HTTP detail leaks to the user").
func Map(rawErrorText string) TemplateKey {
	lower := strings.ToLower(rawErrorText)
	for _, r := range table {
		for _, substr := range r.substrings {
			if strings.Contains(lower, substr) {
				return r.key
			}
		}
	}
	return KeyUnknown
}

// MapInstagramStory runs the general table first and then replaces an
// unknown, not-found or unavailable result with the dedicated story
// key, for failures surfaced while delivering an instagram_story
// bucket (§4.8).
func MapInstagramStory(rawErrorText string) TemplateKey {
	key := Map(rawErrorText)
	if key == KeyUnknown || key == KeyNotFound || key == KeyUnavailable {
		return KeyStory
	}
	return key
}

var messages = map[TemplateKey]string{
	KeyPrivate:     "This content is private or requires login and can't be downloaded.",
	KeyTooLarge:    "This file is too large to deliver.",
	KeyNotFound:    "This content couldn't be found — it may have been removed.",
	KeyTimeout:     "The download timed out. Please try again.",
	KeyUnavailable: "This content is currently unavailable.",
	KeyRegion:      "This content isn't available in your region.",
	KeyProcessing:  "Something went wrong while processing this file.",
	KeyConnection:  "A connection error interrupted the download. Please try again.",
	KeyAPI:         "The download service returned an error. Please try again later.",
	KeyStory:       "This story couldn't be downloaded — it may have expired.",
	KeyUnknown:     "Something went wrong with this download. Please try again.",
	KeyNoURL:       "Send me a TikTok, Instagram, YouTube, or Pinterest link and I'll grab it for you.",
	KeyInvalidURL:  "That link isn't from a supported site yet.",
}

// Render returns the static, localization-ready user-facing message for
// a template key (§4.8 "no raw provider/SSL/HTTP detail leaks").
func Render(key TemplateKey) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return messages[KeyUnknown]
}
