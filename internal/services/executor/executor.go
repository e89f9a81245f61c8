package executor

import (
	"context"
	"time"

	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/services/progress"
	"github.com/socialgrab/downorc/internal/services/providers"
	"github.com/socialgrab/downorc/internal/utils"
)

const transientRetryDelay = 3 * time.Second

// retryableSourceKeys are the source keys that get a single
// same-provider retry on a transient-classified first failure (§4.5).
var retryableSourceKeys = map[models.RoutingSourceKey]bool{
	models.SourceKeyTikTok:    true,
	models.SourceKeyPinterest: true,
}

// Executor walks a ProviderChain in order, classifying failures and
// applying the single-provider transient retry for tiktok/pinterest
// (§4.5).
type Executor struct {
	registry *providers.Registry
	updater  *progress.Updater
}

func New(registry *providers.Registry, updater *progress.Updater) *Executor {
	return &Executor{registry: registry, updater: updater}
}

// Outcome is returned when every provider in the chain has failed.
type Outcome struct {
	FinalError       string
	PerProviderError []models.ProviderAttempt
}

// Execute tries each enabled provider in chain.Providers, in order,
// returning on the first success. On exhaustion it returns the first
// provider's error text as the canonical surface error (§4.5
// "Termination"), plus the full per-provider map for telemetry.
func (e *Executor) Execute(ctx context.Context, chain models.ProviderChain, req *models.Request) (models.DownloadResult, *Outcome) {
	var attempts []models.ProviderAttempt

	for i, spec := range chain.Providers {
		if !spec.Enabled {
			continue
		}

		provider, ok := e.registry.Get(spec.Name)
		if !ok {
			utils.LogWarn(ctx, "executor: unknown provider in chain, skipping", utils.Fields{"provider": spec.Name})
			continue
		}

		result, errText, class := e.invoke(ctx, provider, req, spec)
		if errText == "" {
			return result, nil
		}

		attempts = append(attempts, models.ProviderAttempt{Provider: spec.Name, ErrorText: errText, Class: class})

		if retryableSourceKeys[chain.SourceKey] && i == 0 && IsTransientRetryable(errText) {
			time.Sleep(transientRetryDelay)
			result, errText, class = e.invoke(ctx, provider, req, spec)
			if errText == "" {
				return result, nil
			}
			attempts = append(attempts, models.ProviderAttempt{Provider: spec.Name + ":retry", ErrorText: errText, Class: class})
		}
	}

	if len(attempts) == 0 {
		return models.DownloadResult{}, &Outcome{FinalError: "no providers available"}
	}
	return models.DownloadResult{}, &Outcome{FinalError: attempts[0].ErrorText, PerProviderError: attempts}
}

func (e *Executor) invoke(ctx context.Context, provider providers.Provider, req *models.Request, spec models.ProviderSpec) (models.DownloadResult, string, models.ErrorClass) {
	opts := providers.Options{
		ConnectTimeoutSec:  spec.ConnectTimeoutSec,
		DownloadTimeoutSec: spec.DownloadTimeoutSec,
	}
	if e.updater != nil {
		opts.OnProgress = func(update providers.ProgressUpdate) {
			e.updater.Report(req.ID, progress.Snapshot{
				DownloadedBytes: update.DownloadedBytes,
				TotalBytes:      update.TotalBytes,
			})
		}
	}

	result, err := provider.Download(ctx, req.ResolvedURL, opts)
	if err == nil {
		return result, "", ""
	}

	errText := result.ErrorText
	if errText == "" {
		errText = err.Error()
	}
	return result, errText, Classify(errText)
}

// PreflightYouTubeDuration obtains a best-effort duration from the
// ytdlp adapter ahead of chain resolution, to pick the shorts/full
// bucket (§4.5 "YouTube-duration preflight"). A probe failure falls
// back to the full bucket.
func PreflightYouTubeDuration(ctx context.Context, registry *providers.Registry, url string) (durationSec int, ok bool) {
	// The probe always runs against ytdlp, regardless of chain order,
	// since it's cheaper than a full download attempt from whichever
	// provider is first. ytdlp is registered behind the Pinterest-aware
	// wrapper, which does not expose GetInfo, so it is unwrapped first.
	secondary, found := registry.Get("ytdlp")
	if !found {
		return 0, false
	}
	if wrapper, isWrapper := secondary.(*providers.PinterestAwareProvider); isWrapper {
		secondary = wrapper.Provider
	}
	infoProvider, ok := secondary.(providers.InfoProvider)
	if !ok {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	info, err := infoProvider.GetInfo(ctx, url)
	if err != nil {
		return 0, false
	}
	return info.DurationSec, true
}
