package executor

import (
	"testing"

	"github.com/socialgrab/downorc/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want models.ErrorClass
	}{
		{"ssl eof is hard kill", "SSL: UNEXPECTED_EOF while reading", models.ErrorClassHardKill},
		{"403 forbidden is hard kill", "received 403 Forbidden from host", models.ErrorClassHardKill},
		{"login required is hard kill", "Login required to view this content", models.ErrorClassHardKill},
		{"connection reset is stall", "connection reset by peer mid-download", models.ErrorClassStall},
		{"no progress is stall", "download stalled: no progress for 30s", models.ErrorClassStall},
		{"unknown falls to provider bug", "unexpected nil pointer", models.ErrorClassProviderBug},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.text); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestIsTransientRetryable(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"transient and not permanent", "unable to extract video data, timed out", true},
		{"transient but also permanent", "unable to extract: video is private", false},
		{"not transient at all", "some other unrelated failure", false},
		{"connection reset alone is transient", "connection reset by peer", true},
		{"connection reset but region blocked", "connection reset: not available in your country", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransientRetryable(tc.text); got != tc.want {
				t.Fatalf("IsTransientRetryable(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
