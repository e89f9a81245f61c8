package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform is the source network a Request's URL belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformPinterest Platform = "pinterest"
)

// Bucket is the finer-grained content class within a platform.
type Bucket string

const (
	BucketYouTubeShorts     Bucket = "shorts"
	BucketYouTubeFull       Bucket = "full"
	BucketTikTokVideo       Bucket = "video"
	BucketPinterestMedia    Bucket = "photo_or_video"
	BucketInstagramReel     Bucket = "reel"
	BucketInstagramPost     Bucket = "post"
	BucketInstagramStory    Bucket = "story"
	BucketInstagramCarousel Bucket = "carousel"
)

// RoutingSourceKey identifies a (platform, bucket) pair in the Routing
// Engine's config store and default table (§4.4).
type RoutingSourceKey string

const (
	SourceKeyYouTubeFull       RoutingSourceKey = "youtube_full"
	SourceKeyYouTubeShorts     RoutingSourceKey = "youtube_shorts"
	SourceKeyTikTok            RoutingSourceKey = "tiktok"
	SourceKeyPinterest         RoutingSourceKey = "pinterest"
	SourceKeyInstagramReel     RoutingSourceKey = "instagram_reel"
	SourceKeyInstagramPost     RoutingSourceKey = "instagram_post"
	SourceKeyInstagramStory    RoutingSourceKey = "instagram_story"
	SourceKeyInstagramCarousel RoutingSourceKey = "instagram_carousel"
)

// SourceKeyFor derives the RoutingSourceKey from a platform/bucket pair.
func SourceKeyFor(platform Platform, bucket Bucket) RoutingSourceKey {
	switch platform {
	case PlatformYouTube:
		if bucket == BucketYouTubeShorts {
			return SourceKeyYouTubeShorts
		}
		return SourceKeyYouTubeFull
	case PlatformTikTok:
		return SourceKeyTikTok
	case PlatformPinterest:
		return SourceKeyPinterest
	case PlatformInstagram:
		switch bucket {
		case BucketInstagramReel:
			return SourceKeyInstagramReel
		case BucketInstagramStory:
			return SourceKeyInstagramStory
		case BucketInstagramCarousel:
			return SourceKeyInstagramCarousel
		default:
			return SourceKeyInstagramPost
		}
	default:
		return RoutingSourceKey(string(platform))
	}
}

// Request is a per-message work item, owned by a single request-handling
// goroutine for its whole lifetime (§3).
type Request struct {
	ID            uuid.UUID
	UserRef       string
	BotRef        string
	ChatID        int64
	StatusMsgID   int
	RawURL        string
	ResolvedURL   string
	Platform      Platform
	Bucket        Bucket
	LanguageTag   string
	CorrelationID string
	StartedAt     time.Time
}

// SourceKey returns the RoutingSourceKey for this request's current
// platform/bucket classification.
func (r *Request) SourceKey() RoutingSourceKey {
	return SourceKeyFor(r.Platform, r.Bucket)
}

// Fingerprint is the MD5-based key of the Artifact Cache (§4.2).
type Fingerprint string

// DeliveredArtifact is the Artifact Cache's stored record, keyed by
// Fingerprint, holding opaque upload handles returned by the messenger
// transport — one per media role.
type DeliveredArtifact struct {
	Fingerprint Fingerprint
	VideoHandle string
	AudioHandle string
	StoredAt    time.Time
}

// ProviderSpec is one entry of a ProviderChain.
type ProviderSpec struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	DownloadTimeoutSec int    `json:"download_timeout_sec"`
	ConnectTimeoutSec  int    `json:"connect_timeout_sec"`
}

// ProviderChain is the ordered list of providers to try for a routing
// source key, plus whether it came from an override.
type ProviderChain struct {
	SourceKey  RoutingSourceKey
	Providers  []ProviderSpec
	IsOverride bool
}

// RoutingOverride is the time-bounded override layer persisted in the
// config store alongside the baseline chain (§3, §4.4).
type RoutingOverride struct {
	Chain     []string  `json:"chain"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaInfo is provider-reported metadata about the fetched content.
type MediaInfo struct {
	Title        string
	Author       string
	ThumbnailRef string
	Platform     Platform
}

// DownloadResult is the product of one provider invocation (§3).
type DownloadResult struct {
	Success bool

	LocalFilePath     string
	SuggestedFilename string
	FileSizeBytes     int64
	IsPhoto           bool
	MediaInfo         MediaInfo
	Quota             string
	PrepMs            int64
	DownloadMs        int64
	DownloadHost      string

	ErrorText string
}

// Carousel is an ordered sequence of DownloadResult items for
// Instagram multi-media posts. The first item carries the caption.
type Carousel struct {
	Items []DownloadResult
}

func (c *Carousel) HasVideo() bool {
	for _, item := range c.Items {
		if !item.IsPhoto {
			return true
		}
	}
	return false
}

// TelemetryAction enumerates the action column of action_logs (§3, §4.7).
type TelemetryAction string

const (
	ActionDownloadRequest    TelemetryAction = "download_request"
	ActionDownloadSuccess    TelemetryAction = "download_success"
	ActionDownloadError      TelemetryAction = "download_error"
	ActionFlyerAdShown       TelemetryAction = "flyer_ad_shown"
	ActionFlyerSubCompleted  TelemetryAction = "flyer_sub_completed"
	ActionAudioExtracted     TelemetryAction = "audio_extracted"
)

// TelemetryRecord is an append-only row per terminal outcome.
type TelemetryRecord struct {
	ID                uuid.UUID
	UserRef           string
	BotRef            string
	Action            TelemetryAction
	Details           map[string]interface{}
	APISource         string
	DownloadTimeMs    int64
	FileSizeBytes     int64
	DownloadSpeedKbps float64
	CreatedAt         time.Time
}

// DeliveryKind distinguishes the upload shape used by the Delivery
// stage (§4.7).
type DeliveryKind string

const (
	DeliveryVideo    DeliveryKind = "video"
	DeliveryPhoto    DeliveryKind = "photo"
	DeliveryDocument DeliveryKind = "document"
	DeliveryCarousel DeliveryKind = "carousel"
	DeliveryAudio    DeliveryKind = "audio"
)

// ErrorClass is the Provider Chain Executor's classification of a
// provider failure (§4.5).
type ErrorClass string

const (
	ErrorClassHardKill     ErrorClass = "HARD_KILL"
	ErrorClassStall        ErrorClass = "STALL"
	ErrorClassProviderBug  ErrorClass = "PROVIDER_BUG"
)

// ProviderAttempt records one failed provider invocation for telemetry.
type ProviderAttempt struct {
	Provider  string
	ErrorText string
	Class     ErrorClass
}
