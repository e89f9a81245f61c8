package providers

import (
	"context"
	"strings"

	"github.com/socialgrab/downorc/internal/models"
)

// PinterestAwareProvider decorates another Provider with the
// Pinterest photo-fallback behavior from downloader.py: when the
// wrapped provider reports "no video formats" for a pinterest URL, it
// retries via the photo fetcher before surfacing failure to the chain
// executor. This is provider-internal behavior, distinct from the
// executor's chain fallback (§8 "Pinterest photo-fallback").
type PinterestAwareProvider struct {
	Provider
	photoFetcher *RapidAPIProvider
}

func NewPinterestAwareProvider(wrapped Provider, photoFetcher *RapidAPIProvider) *PinterestAwareProvider {
	return &PinterestAwareProvider{Provider: wrapped, photoFetcher: photoFetcher}
}

func (p *PinterestAwareProvider) Download(ctx context.Context, url string, opts Options) (models.DownloadResult, error) {
	result, err := p.Provider.Download(ctx, url, opts)
	if err == nil {
		return result, nil
	}
	if !isPinterestURL(url) || !isNoVideoFormatsError(err.Error()) {
		return result, err
	}

	photoResult, photoErr := p.photoFetcher.Download(ctx, url, opts)
	if photoErr != nil {
		return result, err // surface the original error, not the fallback's
	}
	photoResult.IsPhoto = true
	return photoResult, nil
}

func isPinterestURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "pinterest") || strings.Contains(lower, "pin.it")
}

func isNoVideoFormatsError(errorText string) bool {
	lower := strings.ToLower(errorText)
	return strings.Contains(lower, "no video") || strings.Contains(lower, "video formats")
}
