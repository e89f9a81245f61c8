package intake

import (
	"testing"

	"github.com/socialgrab/downorc/internal/models"
)

func TestExtractURL(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		wantOK bool
		want   string
	}{
		{"tiktok share text", "check this out https://www.tiktok.com/@user/video/123 lol", true, "https://www.tiktok.com/@user/video/123"},
		{"bare youtube link", "https://youtu.be/abc123", true, "https://youtu.be/abc123"},
		{"no url", "no links here", false, ""},
		{"unsupported host", "https://example.com/video/1", false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractURL(tc.text)
			if ok != tc.wantOK {
				t.Fatalf("ExtractURL(%q) ok = %v, want %v", tc.text, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("ExtractURL(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		url          string
		wantPlatform models.Platform
		wantBucket   models.Bucket
	}{
		{"https://youtube.com/shorts/abc", models.PlatformYouTube, models.BucketYouTubeShorts},
		{"https://youtube.com/watch?v=abc", models.PlatformYouTube, models.BucketYouTubeFull},
		{"https://www.instagram.com/reel/abc", models.PlatformInstagram, models.BucketInstagramReel},
		{"https://www.instagram.com/stories/user/123", models.PlatformInstagram, models.BucketInstagramStory},
		{"https://www.instagram.com/p/abc", models.PlatformInstagram, models.BucketInstagramPost},
		{"https://www.tiktok.com/@user/video/123", models.PlatformTikTok, models.BucketTikTokVideo},
		{"https://pin.it/abc", models.PlatformPinterest, models.BucketPinterestMedia},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			platform, bucket := Classify(tc.url)
			if platform != tc.wantPlatform || bucket != tc.wantBucket {
				t.Fatalf("Classify(%q) = (%v, %v), want (%v, %v)", tc.url, platform, bucket, tc.wantPlatform, tc.wantBucket)
			}
		})
	}
}

func TestCanonicalizeStripsTrackingParams(t *testing.T) {
	a := Canonicalize("https://www.Instagram.com/reel/abc?igsh=xyz&utm_source=share")
	b := Canonicalize("https://www.instagram.com/reel/abc")
	if a != b {
		t.Fatalf("expected tracking params stripped: %q != %q", a, b)
	}
}

func TestUpgradeToCarousel(t *testing.T) {
	if got := UpgradeToCarousel(models.BucketInstagramPost, 1); got != models.BucketInstagramPost {
		t.Fatalf("single item should not upgrade, got %v", got)
	}
	if got := UpgradeToCarousel(models.BucketInstagramPost, 3); got != models.BucketInstagramCarousel {
		t.Fatalf("multi item should upgrade to carousel, got %v", got)
	}
}
