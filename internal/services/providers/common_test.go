package providers

import (
	"testing"

	"github.com/socialgrab/downorc/internal/models"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"simple path", "https://example.com/videos/clip", "clip.mp4"},
		{"strips unsafe chars", "https://example.com/p/abc?123=xyz", "abc123xyz.mp4"},
		{"empty base falls back", "", "video.mp4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeFilename(tc.url)
			if got != tc.want {
				t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestSanitizeFilenameTruncatesLongNames(t *testing.T) {
	longURL := "https://example.com/" + stringsRepeat("a", 100)
	got := sanitizeFilename(longURL)
	if len(got) != 54 { // 50 chars + ".mp4"
		t.Fatalf("expected truncated filename of length 54, got %d (%q)", len(got), got)
	}
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func TestPlatformFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want models.Platform
	}{
		{"https://www.youtube.com/watch?v=abc", models.PlatformYouTube},
		{"https://www.tiktok.com/@user/video/1", models.PlatformTikTok},
		{"https://www.instagram.com/reel/abc", models.PlatformInstagram},
		{"https://pin.it/abc", models.PlatformPinterest},
		{"https://www.pinterest.com/pin/123", models.PlatformPinterest},
		{"https://example.com/video", models.Platform("")},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			if got := platformFromURL(tc.url); got != tc.want {
				t.Fatalf("platformFromURL(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestHostForPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "googlevideo.com"},
		{"https://www.tiktok.com/@user/video/1", "tiktokcdn.com"},
		{"https://www.instagram.com/reel/abc", "cdninstagram.com"},
		{"https://pin.it/abc", "pinimg.com"},
		{"https://example.com/video", "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			if got := hostForPlatform(tc.url); got != tc.want {
				t.Fatalf("hostForPlatform(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestParseJSONIntField(t *testing.T) {
	cases := []struct {
		name string
		json string
		field string
		want int
	}{
		{"simple field", `{"duration": 45, "id": "abc"}`, "duration", 45},
		{"field with space", `{"duration": 120}`, "duration", 120},
		{"missing field", `{"id": "abc"}`, "duration", 0},
		{"trailing brace", `{"duration":90}`, "duration", 90},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseJSONIntField(tc.json, tc.field); got != tc.want {
				t.Fatalf("parseJSONIntField(%q, %q) = %d, want %d", tc.json, tc.field, got, tc.want)
			}
		})
	}
}
