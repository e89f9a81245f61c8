package delivery

import (
	"strings"
	"testing"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/models"
)

func testProviderConfig() config.ProviderConfig {
	return config.ProviderConfig{
		MaxFileSizeBytes:              50 * 1024 * 1024,
		YoutubeDocumentThresholdBytes: 50 * 1024 * 1024,
		YoutubeHardCapBytes:           2 * 1024 * 1024 * 1024,
	}
}

func TestSizing(t *testing.T) {
	cfg := testProviderConfig()

	cases := []struct {
		name   string
		bucket models.Bucket
		size   int64
		want   SizeDecision
	}{
		{"small tiktok video", models.BucketTikTokVideo, 10 * 1024 * 1024, SizeAsVideo},
		{"oversized non-youtube rejected", models.BucketTikTokVideo, 80 * 1024 * 1024, SizeRejected},
		{"youtube_full above threshold becomes document", models.BucketYouTubeFull, 100 * 1024 * 1024, SizeAsDoc},
		{"exceeds hard cap always rejected", models.BucketYouTubeFull, 3 * 1024 * 1024 * 1024, SizeRejected},
		{"at threshold stays video", models.BucketTikTokVideo, 50 * 1024 * 1024, SizeAsVideo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sizing(cfg, tc.bucket, tc.size); got != tc.want {
				t.Fatalf("Sizing(%v, %d) = %v, want %v", tc.bucket, tc.size, got, tc.want)
			}
		})
	}
}

func TestCaptionYouTubeFull(t *testing.T) {
	req := &models.Request{Bucket: models.BucketYouTubeFull, BotRef: "grabberbot"}
	info := models.MediaInfo{Title: "A great video"}

	got := Caption(req, info, "1080p", 125)
	if !strings.Contains(got, "A great video") || !strings.Contains(got, "1080p") || !strings.Contains(got, "@grabberbot") {
		t.Fatalf("caption missing expected fields: %q", got)
	}
	if !strings.Contains(got, "0:02:05") {
		t.Fatalf("caption missing formatted duration: %q", got)
	}
}

func TestCaptionTruncatesLongTitle(t *testing.T) {
	req := &models.Request{Bucket: models.BucketYouTubeFull, BotRef: "grabberbot"}
	info := models.MediaInfo{Title: strings.Repeat("x", 300)}

	got := Caption(req, info, "720p", 10)
	lines := strings.SplitN(got, "\n", 2)
	if len(lines[0]) != 200 {
		t.Fatalf("expected title truncated to 200 chars, got %d", len(lines[0]))
	}
}

func TestCaptionOtherBuckets(t *testing.T) {
	req := &models.Request{Bucket: models.BucketTikTokVideo, BotRef: "grabberbot"}
	got := Caption(req, models.MediaInfo{}, "", 0)
	if got != "Downloaded via @grabberbot" {
		t.Fatalf("unexpected caption: %q", got)
	}
}

func TestFormatHMS(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00:00"},
		{65, "0:01:05"},
		{3725, "1:02:05"},
	}

	for _, tc := range cases {
		if got := formatHMS(tc.seconds); got != tc.want {
			t.Fatalf("formatHMS(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSpeedKbps(t *testing.T) {
	if got := speedKbps(1000, 0); got != 0 {
		t.Fatalf("expected 0 speed for zero duration, got %f", got)
	}
	got := speedKbps(125000, 1000)
	if got != 1000 {
		t.Fatalf("speedKbps(125000, 1000) = %f, want 1000", got)
	}
}
