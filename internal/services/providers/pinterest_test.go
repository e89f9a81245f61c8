package providers

import "testing"

func TestIsPinterestURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://pin.it/abc123", true},
		{"https://www.pinterest.com/pin/123", true},
		{"https://www.tiktok.com/@user/video/1", false},
	}
	for _, tc := range cases {
		if got := isPinterestURL(tc.url); got != tc.want {
			t.Fatalf("isPinterestURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestIsNoVideoFormatsError(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"ERROR: no video formats found", true},
		{"requested video formats not available", true},
		{"connection reset by peer", false},
	}
	for _, tc := range cases {
		if got := isNoVideoFormatsError(tc.text); got != tc.want {
			t.Fatalf("isNoVideoFormatsError(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
