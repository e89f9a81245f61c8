package providers

import "testing"

func TestFormatStringFor(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"tiktok", "https://www.tiktok.com/@user/video/123", "best[ext=mp4][vcodec^=avc]/best[ext=mp4][vcodec^=h264]/best[ext=mp4]/best"},
		{"youtube full", "https://www.youtube.com/watch?v=abc", "best[height<=720][ext=mp4]/best[height<=720]/best[ext=mp4]/best"},
		{"youtube shorts uses default hint", "https://www.youtube.com/shorts/abc", "best[ext=mp4]/best"},
		{"pinterest", "https://pin.it/abc", "best[ext=mp4]/best[ext=webm]/bestvideo+bestaudio/best"},
		{"default", "https://www.instagram.com/reel/abc", "best[ext=mp4]/best"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatStringFor(tc.url); got != tc.want {
				t.Fatalf("formatStringFor(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestParseProgressLine(t *testing.T) {
	line := "[download]  42.5% of ~10.0MiB at  512.0KiB/s"
	update, ok := parseProgressLine(line)
	if !ok {
		t.Fatalf("expected line to match, got no match for %q", line)
	}
	wantTotal := int64(10.0 * 1024 * 1024)
	if update.TotalBytes != wantTotal {
		t.Fatalf("TotalBytes = %d, want %d", update.TotalBytes, wantTotal)
	}
	wantSpeed := 512.0 * 1024
	if update.SpeedBytesPerSec != wantSpeed {
		t.Fatalf("SpeedBytesPerSec = %f, want %f", update.SpeedBytesPerSec, wantSpeed)
	}
	if update.Status != "downloading" {
		t.Fatalf("Status = %q, want %q", update.Status, "downloading")
	}
}

func TestParseProgressLineNoMatch(t *testing.T) {
	_, ok := parseProgressLine("some unrelated log line")
	if ok {
		t.Fatalf("expected no match for unrelated log line")
	}
}

func TestUnitMultiplier(t *testing.T) {
	cases := []struct {
		unit string
		want float64
	}{
		{"KiB", 1024},
		{"KB", 1024},
		{"MiB", 1024 * 1024},
		{"GiB", 1024 * 1024 * 1024},
		{"B", 1},
		{"", 1},
	}
	for _, tc := range cases {
		if got := unitMultiplier(tc.unit); got != tc.want {
			t.Fatalf("unitMultiplier(%q) = %f, want %f", tc.unit, got, tc.want)
		}
	}
}
