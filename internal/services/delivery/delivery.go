package delivery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/database"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/services/cache"
	"github.com/socialgrab/downorc/internal/services/transport"
	"github.com/socialgrab/downorc/internal/utils"
)

// Per-call timeouts (§4.7).
const (
	timeoutDocument = 2700 * time.Second
	timeoutVideo    = 2700 * time.Second
	timeoutPhoto    = 300 * time.Second
	timeoutCarousel = 1200 * time.Second
	timeoutAudio    = 600 * time.Second
)

var transportRetrySubstrings = []string{
	"connection reset", "broken pipe", "ssl", "eof",
	"read timeout", "closing transport", "server disconnected",
}

func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *transport.TransportError
	if te, ok := err.(*transport.TransportError); ok {
		transportErr = te
	}
	if transportErr != nil && transportErr.Forbidden {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, substr := range transportRetrySubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

// SizeDecision is what Sizing resolves a file's byte count into.
type SizeDecision string

const (
	SizeRejected SizeDecision = "rejected"
	SizeAsVideo  SizeDecision = "video"
	SizeAsDoc    SizeDecision = "document"
)

// Sizing applies §4.7's sizing table. bucket distinguishes the
// youtube_full document allowance from every other platform's single
// cap.
func Sizing(cfg config.ProviderConfig, bucket models.Bucket, sizeBytes int64) SizeDecision {
	if sizeBytes > cfg.YoutubeHardCapBytes {
		return SizeRejected
	}
	if sizeBytes <= cfg.YoutubeDocumentThresholdBytes {
		return SizeAsVideo
	}
	if bucket == models.BucketYouTubeFull {
		return SizeAsDoc
	}
	if sizeBytes > cfg.MaxFileSizeBytes {
		return SizeRejected
	}
	return SizeAsDoc
}

// StageTiming is the per-request timing/metadata row written on
// delivery success (§4.7).
type StageTiming struct {
	PrepMs        int64
	DownloadMs    int64
	UploadMs      int64
	TotalMs       int64
	FileSizeBytes int64
	DownloadHost  string
	Bucket        models.Bucket
	Platform      models.Platform
	Type          models.DeliveryKind
	FlyerRequired bool
	Quota         string
}

// Outcome groups the handles to cache, or the error to map and surface,
// of one delivery. None of the Deliver* methods returns it.
type Outcome struct {
	VideoHandle string
	AudioHandle string
	Err         error
}

// Deliverer runs the upload + telemetry + cache-store stage (§4.7).
type Deliverer struct {
	transport transport.Transport
	store     *database.PostgresDB
	cache     *cache.ArtifactCache
	cfg       config.ProviderConfig
	botRef    string
}

func New(t transport.Transport, store *database.PostgresDB, artifactCache *cache.ArtifactCache, cfg config.ProviderConfig, botRef string) *Deliverer {
	return &Deliverer{transport: t, store: store, cache: artifactCache, cfg: cfg, botRef: botRef}
}

// Caption renders the fixed signature line, or the youtube_full-specific
// title/quality/duration caption (§4.7).
func Caption(req *models.Request, info models.MediaInfo, quality string, durationSec int) string {
	if req.Bucket == models.BucketYouTubeFull {
		title := info.Title
		if len(title) > 200 {
			title = title[:200]
		}
		return fmt.Sprintf("%s\n[%s] | %s\n[Downloaded via] @%s", title, quality, formatHMS(durationSec), req.BotRef)
	}
	return fmt.Sprintf("Downloaded via @%s", req.BotRef)
}

func formatHMS(totalSec int) string {
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// DeliverVideo uploads a single video result with the faststart/thumbnail
// artifacts already prepared by the Post-Processor, retrying per the
// fixed backoff schedule (§4.7).
func (d *Deliverer) DeliverVideo(ctx context.Context, req *models.Request, result models.DownloadResult, thumbnailPath string, width, height, durationSec int, caption string) (handle string, uploadMs int64, err error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeoutVideo)
	defer cancel()

	err = utils.Retry(callCtx, utils.UploadBackoff, isRetryableTransportError, func(int) error {
		var attemptErr error
		handle, attemptErr = d.transport.SendVideo(callCtx, req.ChatID, result.LocalFilePath, caption, thumbnailPath, width, height, durationSec, true, timeoutVideo)
		return attemptErr
	})
	uploadMs = time.Since(start).Milliseconds()
	return handle, uploadMs, err
}

// DeliverDocument uploads an oversized video as a document (§4.7).
func (d *Deliverer) DeliverDocument(ctx context.Context, req *models.Request, localPath, caption string) (handle string, uploadMs int64, err error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeoutDocument)
	defer cancel()

	err = utils.Retry(callCtx, utils.UploadBackoff, isRetryableTransportError, func(int) error {
		var attemptErr error
		handle, attemptErr = d.transport.SendDocument(callCtx, req.ChatID, localPath, caption, timeoutDocument)
		return attemptErr
	})
	uploadMs = time.Since(start).Milliseconds()
	return handle, uploadMs, err
}

// DeliverPhoto uploads a single photo (Pinterest fallback, story frames).
func (d *Deliverer) DeliverPhoto(ctx context.Context, req *models.Request, localPath, caption string) (handle string, uploadMs int64, err error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeoutPhoto)
	defer cancel()

	err = utils.Retry(callCtx, utils.UploadBackoff, isRetryableTransportError, func(int) error {
		var attemptErr error
		handle, attemptErr = d.transport.SendPhoto(callCtx, req.ChatID, localPath, caption, timeoutPhoto)
		return attemptErr
	})
	uploadMs = time.Since(start).Milliseconds()
	return handle, uploadMs, err
}

// DeliverAudio uploads the audio-extraction follow-up (§ supplemented
// feature).
func (d *Deliverer) DeliverAudio(ctx context.Context, req *models.Request, localPath, caption string) (handle string, uploadMs int64, err error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeoutAudio)
	defer cancel()

	err = utils.Retry(callCtx, utils.UploadBackoff, isRetryableTransportError, func(int) error {
		var attemptErr error
		handle, attemptErr = d.transport.SendAudio(callCtx, req.ChatID, localPath, caption, timeoutAudio)
		return attemptErr
	})
	uploadMs = time.Since(start).Milliseconds()
	return handle, uploadMs, err
}

// DeliverCarousel uploads an Instagram carousel as a single media group
// (§4.7).
func (d *Deliverer) DeliverCarousel(ctx context.Context, req *models.Request, items []transport.MediaItem) (uploadMs int64, err error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeoutCarousel)
	defer cancel()

	err = utils.Retry(callCtx, utils.UploadBackoff, isRetryableTransportError, func(int) error {
		return d.transport.SendMediaGroup(callCtx, req.ChatID, items, timeoutCarousel)
	})
	uploadMs = time.Since(start).Milliseconds()
	return uploadMs, err
}

// RecordSuccess writes the stage-timing telemetry row and stores the
// delivered handles in the Artifact Cache (§4.7 "Artifact caching on
// success").
func (d *Deliverer) RecordSuccess(ctx context.Context, req *models.Request, timing StageTiming, fp models.Fingerprint, videoHandle, audioHandle string) {
	if fp != "" && (videoHandle != "" || audioHandle != "") {
		d.cache.Store(ctx, fp, videoHandle, audioHandle)
	}

	record := &models.TelemetryRecord{
		ID:                uuid.New(),
		UserRef:           req.UserRef,
		BotRef:            d.botRef,
		Action:            models.ActionDownloadSuccess,
		APISource:         timing.DownloadHost,
		DownloadTimeMs:    timing.DownloadMs,
		FileSizeBytes:     timing.FileSizeBytes,
		DownloadSpeedKbps: speedKbps(timing.FileSizeBytes, timing.DownloadMs),
		Details: map[string]interface{}{
			"prep_ms":        timing.PrepMs,
			"download_ms":    timing.DownloadMs,
			"upload_ms":      timing.UploadMs,
			"total_ms":       timing.TotalMs,
			"download_host":  timing.DownloadHost,
			"bucket":         string(timing.Bucket),
			"platform":       string(timing.Platform),
			"type":           string(timing.Type),
			"flyer_required": timing.FlyerRequired,
			"quota":          timing.Quota,
		},
	}

	if err := d.store.InsertTelemetry(ctx, record); err != nil {
		utils.LogWarn(ctx, "delivery: telemetry insert failed", utils.Fields{"error": err.Error()})
	}
}

// RecordFailure writes the action=download_error telemetry row (§4.7).
func (d *Deliverer) RecordFailure(ctx context.Context, req *models.Request, providersTried []models.ProviderAttempt) {
	classMap := make(map[string]string, len(providersTried))
	var firstClass models.ErrorClass
	for i, attempt := range providersTried {
		classMap[attempt.Provider] = string(attempt.Class)
		if i == 0 {
			firstClass = attempt.Class
		}
	}

	record := &models.TelemetryRecord{
		ID:      uuid.New(),
		UserRef: req.UserRef,
		BotRef:  d.botRef,
		Action:  models.ActionDownloadError,
		Details: map[string]interface{}{
			"providers_tried": providersTried,
			"error_classes":   classMap,
			"first_error_class": string(firstClass),
		},
	}

	if err := d.store.InsertTelemetry(ctx, record); err != nil {
		utils.LogWarn(ctx, "delivery: failure telemetry insert failed", utils.Fields{"error": err.Error()})
	}
}

// RecordFlyerAdShown writes the flyer_ad_shown-only row for a gated
// request the core aborted before slot acquisition (§4.9).
func (d *Deliverer) RecordFlyerAdShown(ctx context.Context, req *models.Request, sourceKey models.RoutingSourceKey) {
	record := &models.TelemetryRecord{
		ID:      uuid.New(),
		UserRef: req.UserRef,
		BotRef:  d.botRef,
		Action:  models.ActionFlyerAdShown,
		Details: map[string]interface{}{"source_key": string(sourceKey)},
	}
	if err := d.store.InsertTelemetry(ctx, record); err != nil {
		utils.LogWarn(ctx, "delivery: flyer telemetry insert failed", utils.Fields{"error": err.Error()})
	}
}

func speedKbps(sizeBytes int64, downloadMs int64) float64 {
	if downloadMs <= 0 {
		return 0
	}
	bits := float64(sizeBytes) * 8
	seconds := float64(downloadMs) / 1000
	return bits / seconds / 1000
}

// CleanupLocalFiles removes any scratch files left after a delivered or
// failed request (§5 "failure isolation").
func CleanupLocalFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		_ = os.Remove(path)
	}
}
