package intake

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/utils"
)

// trackingParams are stripped (by Canonicalize) before fingerprinting
// so that identical content under different campaign tags maps to the
// same fingerprint (§8 invariant 5).
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "si": true, "igsh": true,
	"igshid": true, "fbclid": true, "gclid": true, "epik": true,
	"sender_device": true,
}

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

var supportedHosts = []string{
	"tiktok.com", "vt.tiktok.com", "vm.tiktok.com",
	"instagram.com", "instagr.am",
	"youtube.com", "youtu.be",
	"pinterest.com", "pin.it",
}

var shortHosts = map[string]bool{
	"pin.it":          true,
	"vt.tiktok.com":   true,
	"vm.tiktok.com":   true,
	"instagr.am":      true,
}

// ExtractURL regex-matches the first URL from the supported host set,
// case-insensitive (§4.1).
func ExtractURL(text string) (string, bool) {
	candidates := urlPattern.FindAllString(text, -1)
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		for _, host := range supportedHosts {
			if strings.Contains(lower, host) {
				return candidate, true
			}
		}
	}
	return "", false
}

// Resolver follows short-link redirects. In production it is an
// *http.Client; tests can substitute a fake RoundTripper.
type Resolver struct {
	client *http.Client
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return nil // follow redirects, let it run to completion
			},
		},
	}
}

// ResolveShortURL issues a redirect-following HEAD request with a 10s
// deadline for known short hosts and returns the final URL. On any
// failure it returns the input unchanged (§4.1).
func (r *Resolver) ResolveShortURL(ctx context.Context, rawURL string) string {
	if !isShortHost(rawURL) {
		return rawURL
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		utils.LogWarn(ctx, "resolveShortUrl: building request failed", utils.Fields{"url": rawURL})
		return rawURL
	}

	resp, err := r.client.Do(req)
	if err != nil {
		utils.LogWarn(ctx, "resolveShortUrl: request failed", utils.Fields{"url": rawURL, "error": err.Error()})
		return rawURL
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return rawURL
}

func isShortHost(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for host := range shortHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	// tiktok.com/t/ is a short path on the main host, not a distinct host
	return strings.Contains(lower, "tiktok.com/t/")
}

// Classify derives platform and bucket from a resolved URL (§4.1).
func Classify(resolvedURL string) (models.Platform, models.Bucket) {
	lower := strings.ToLower(resolvedURL)

	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		if strings.Contains(lower, "/shorts/") {
			return models.PlatformYouTube, models.BucketYouTubeShorts
		}
		return models.PlatformYouTube, models.BucketYouTubeFull

	case strings.Contains(lower, "instagram.com") || strings.Contains(lower, "instagr.am"):
		switch {
		case strings.Contains(lower, "/reel"):
			return models.PlatformInstagram, models.BucketInstagramReel
		case strings.Contains(lower, "/stories/"):
			return models.PlatformInstagram, models.BucketInstagramStory
		default:
			return models.PlatformInstagram, models.BucketInstagramPost
		}

	case strings.Contains(lower, "tiktok.com"):
		return models.PlatformTikTok, models.BucketTikTokVideo

	case strings.Contains(lower, "pinterest.com") || strings.Contains(lower, "pin.it"):
		return models.PlatformPinterest, models.BucketPinterestMedia
	}

	return "", ""
}

// Canonicalize strips tracking query parameters and lower-cases the
// host, so two URLs differing only by campaign tags canonicalize
// identically. Used as the input to the Artifact Cache's fingerprint;
// Classify is called on the resolved URL as is.
func Canonicalize(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Host = strings.ToLower(parsed.Host)

	query := parsed.Query()
	for key := range query {
		if trackingParams[strings.ToLower(key)] {
			query.Del(key)
		}
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, key := range keys {
		for _, v := range query[key] {
			values.Add(key, v)
		}
	}
	parsed.RawQuery = values.Encode()

	return parsed.String()
}

// UpgradeToCarousel reclassifies an Instagram post/reel as a carousel
// once the provider reports more than one media item, per §4.1's
// post-download upgrade rule.
func UpgradeToCarousel(bucket models.Bucket, itemCount int) models.Bucket {
	if itemCount > 1 {
		return models.BucketInstagramCarousel
	}
	return bucket
}
