package gate

import (
	"testing"

	"github.com/socialgrab/downorc/internal/models"
)

func TestIsInstagramSourceKey(t *testing.T) {
	cases := []struct {
		key  models.RoutingSourceKey
		want bool
	}{
		{models.SourceKeyInstagramReel, true},
		{models.SourceKeyInstagramPost, true},
		{models.SourceKeyInstagramStory, true},
		{models.SourceKeyInstagramCarousel, true},
		{models.SourceKeyYouTubeFull, false},
		{models.SourceKeyTikTok, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.key), func(t *testing.T) {
			if got := isInstagramSourceKey(tc.key); got != tc.want {
				t.Fatalf("isInstagramSourceKey(%v) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestAlwaysFreeSourceKeys(t *testing.T) {
	free := []models.RoutingSourceKey{models.SourceKeyTikTok, models.SourceKeyPinterest, models.SourceKeyYouTubeShorts}
	for _, key := range free {
		if !alwaysFreeSourceKeys[key] {
			t.Fatalf("expected %v to be always-free", key)
		}
	}

	notFree := []models.RoutingSourceKey{models.SourceKeyYouTubeFull, models.SourceKeyInstagramReel, models.SourceKeyInstagramPost}
	for _, key := range notFree {
		if alwaysFreeSourceKeys[key] {
			t.Fatalf("expected %v to not be always-free", key)
		}
	}
}
