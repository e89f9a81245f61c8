package routing

import (
	"testing"

	"github.com/socialgrab/downorc/internal/models"
)

func TestDefaultChain(t *testing.T) {
	e := &Engine{}

	cases := []struct {
		sourceKey models.RoutingSourceKey
		want      []string
	}{
		{models.SourceKeyYouTubeFull, []string{"ytdlp", "pytubefix", "savenow"}},
		{models.SourceKeyTikTok, []string{"ytdlp", "rapidapi"}},
		{models.SourceKeyInstagramReel, []string{"rapidapi"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.sourceKey), func(t *testing.T) {
			chain := e.defaultChain(tc.sourceKey)
			if len(chain.Providers) != len(tc.want) {
				t.Fatalf("defaultChain(%v) has %d providers, want %d", tc.sourceKey, len(chain.Providers), len(tc.want))
			}
			for i, spec := range chain.Providers {
				if spec.Name != tc.want[i] {
					t.Fatalf("defaultChain(%v)[%d].Name = %q, want %q", tc.sourceKey, i, spec.Name, tc.want[i])
				}
				if !spec.Enabled {
					t.Fatalf("defaultChain(%v)[%d] should be enabled", tc.sourceKey, i)
				}
				if spec.DownloadTimeoutSec != defaultDownloadTimeoutSec || spec.ConnectTimeoutSec != defaultConnectTimeoutSec {
					t.Fatalf("defaultChain(%v)[%d] timeouts = (%d, %d), want defaults", tc.sourceKey, i, spec.DownloadTimeoutSec, spec.ConnectTimeoutSec)
				}
			}
		})
	}
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	specs := []models.ProviderSpec{
		{Name: "ytdlp", Enabled: true},
		{Name: "rapidapi", Enabled: true, DownloadTimeoutSec: 120, ConnectTimeoutSec: 10},
	}

	got := applyDefaults(specs)

	if got[0].DownloadTimeoutSec != defaultDownloadTimeoutSec || got[0].ConnectTimeoutSec != defaultConnectTimeoutSec {
		t.Fatalf("expected zero-valued timeouts filled with defaults, got %+v", got[0])
	}
	if got[1].DownloadTimeoutSec != 120 || got[1].ConnectTimeoutSec != 10 {
		t.Fatalf("expected explicit timeouts preserved, got %+v", got[1])
	}
}

func TestEnabledProviders(t *testing.T) {
	chain := models.ProviderChain{
		Providers: []models.ProviderSpec{
			{Name: "ytdlp", Enabled: true},
			{Name: "rapidapi", Enabled: false},
			{Name: "savenow", Enabled: true},
		},
	}

	got := EnabledProviders(chain)
	if len(got) != 2 {
		t.Fatalf("expected 2 enabled providers, got %d", len(got))
	}
	if got[0].Name != "ytdlp" || got[1].Name != "savenow" {
		t.Fatalf("expected order preserved, got %+v", got)
	}
}
