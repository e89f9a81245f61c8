package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/database"
	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/services/cache"
	"github.com/socialgrab/downorc/internal/services/delivery"
	"github.com/socialgrab/downorc/internal/services/errormap"
	"github.com/socialgrab/downorc/internal/services/executor"
	"github.com/socialgrab/downorc/internal/services/intake"
	"github.com/socialgrab/downorc/internal/services/postproc"
	"github.com/socialgrab/downorc/internal/services/progress"
	"github.com/socialgrab/downorc/internal/services/providers"
	"github.com/socialgrab/downorc/internal/services/routing"
	"github.com/socialgrab/downorc/internal/services/transport"
	"github.com/socialgrab/downorc/internal/utils"
)

// Incoming is one inbound chat message the transport's webhook ingress
// decoded, ready to dispatch into Core.Process (§5, §6).
type Incoming struct {
	ChatID      int64
	UserRef     string
	Text        string
	LanguageTag string
}

// cacheLookup is the slice of *cache.ArtifactCache that Core calls
// directly; narrowed to an interface so Process's cache-hit path can be
// exercised against a fake instead of a live Redis-backed cache.
type cacheLookup interface {
	Lookup(ctx context.Context, fp models.Fingerprint) (*models.DeliveredArtifact, bool)
}

// subscriptionGate is the slice of *gate.Gate that Core calls directly.
type subscriptionGate interface {
	Evaluate(ctx context.Context, userRef, languageTag string, sourceKey models.RoutingSourceKey) (allowed bool, checkWasRequired bool)
}

// deliveryService is the slice of *delivery.Deliverer that Core calls
// directly; narrowed to an interface for the same reason as cacheLookup.
type deliveryService interface {
	DeliverVideo(ctx context.Context, req *models.Request, result models.DownloadResult, thumbnailPath string, width, height, durationSec int, caption string) (handle string, uploadMs int64, err error)
	DeliverDocument(ctx context.Context, req *models.Request, localPath, caption string) (handle string, uploadMs int64, err error)
	DeliverPhoto(ctx context.Context, req *models.Request, localPath, caption string) (handle string, uploadMs int64, err error)
	DeliverCarousel(ctx context.Context, req *models.Request, items []transport.MediaItem) (uploadMs int64, err error)
	RecordSuccess(ctx context.Context, req *models.Request, timing delivery.StageTiming, fp models.Fingerprint, videoHandle, audioHandle string)
	RecordFailure(ctx context.Context, req *models.Request, providersTried []models.ProviderAttempt)
	RecordFlyerAdShown(ctx context.Context, req *models.Request, sourceKey models.RoutingSourceKey)
}

// slotController is the slice of *slots.Controller that Core calls
// directly (the ffmpeg slot is acquired by postproc.Processor, not Core).
type slotController interface {
	AcquireUserSlot(ctx context.Context, userID string) bool
	ReleaseUserSlot(ctx context.Context, userID string)
	MarkDownloadStart(ctx context.Context)
	MarkDownloadEnd(ctx context.Context)
	MarkUploadStart(ctx context.Context)
	MarkUploadEnd(ctx context.Context)
}

// Core wires every service into the §5 sequential pipeline: intake ->
// cache -> gate -> slot -> routing -> chain -> post-process -> delivery
// -> telemetry -> cache-store -> slot-release. One Process call owns a
// Request for its whole lifetime, matching the teacher's
// dispatch-then-process-async shape (grounded on
// downloader.go's ProcessPost/processTelegramPost).
type Core struct {
	cfg       *config.Config
	transport transport.Transport
	db        *database.PostgresDB
	kv        *kv.Store
	registry  *providers.Registry
	slots     slotController
	routing   *routing.Engine
	cache     cacheLookup
	progress  *progress.Updater
	exec      *executor.Executor
	postproc  *postproc.Processor
	gate      subscriptionGate
	delivery  deliveryService
	resolver  *intake.Resolver
	botRef    string
}

func New(
	cfg *config.Config,
	t transport.Transport,
	db *database.PostgresDB,
	store *kv.Store,
	registry *providers.Registry,
	slotCtl slotController,
	routingEngine *routing.Engine,
	artifactCache cacheLookup,
	updater *progress.Updater,
	exec *executor.Executor,
	proc *postproc.Processor,
	gateSvc subscriptionGate,
	deliverer deliveryService,
	resolver *intake.Resolver,
	botRef string,
) *Core {
	return &Core{
		cfg:       cfg,
		transport: t,
		db:        db,
		kv:        store,
		registry:  registry,
		slots:     slotCtl,
		routing:   routingEngine,
		cache:     artifactCache,
		progress:  updater,
		exec:      exec,
		postproc:  proc,
		gate:      gateSvc,
		delivery:  deliverer,
		resolver:  resolver,
		botRef:    botRef,
	}
}

// Process runs one request end to end. Once the user slot is acquired,
// the deferred slot release, progress stop and scratch-file cleanup
// run on every later exit path, matching §5's "failure isolation"
// requirement: other in-flight requests are unaffected, and this
// request's slot/temp files are always released.
func (c *Core) Process(ctx context.Context, in Incoming) {
	rawURL, found := intake.ExtractURL(in.Text)
	if !found {
		c.sendPlain(ctx, in.ChatID, errormap.Render(errormap.KeyNoURL))
		return
	}

	resolvedURL := c.resolver.ResolveShortURL(ctx, rawURL)
	platform, bucket := intake.Classify(resolvedURL)
	if platform == "" {
		c.sendPlain(ctx, in.ChatID, errormap.Render(errormap.KeyInvalidURL))
		return
	}

	if platform == models.PlatformYouTube && bucket == models.BucketYouTubeFull {
		if durationSec, ok := executor.PreflightYouTubeDuration(ctx, c.registry, resolvedURL); ok && durationSec > 0 && durationSec <= 60 {
			bucket = models.BucketYouTubeShorts
		}
	}

	req := &models.Request{
		ID:            uuid.New(),
		UserRef:       in.UserRef,
		BotRef:        c.botRef,
		ChatID:        in.ChatID,
		RawURL:        rawURL,
		ResolvedURL:   resolvedURL,
		Platform:      platform,
		Bucket:        bucket,
		LanguageTag:   in.LanguageTag,
		CorrelationID: utils.GenerateCorrelationID(),
		StartedAt:     time.Now(),
	}
	ctx = utils.WithCorrelationID(ctx, req.CorrelationID)

	sourceKey := req.SourceKey()

	fp := cache.Fingerprint(req.ResolvedURL)
	if artifact, hit := c.cache.Lookup(ctx, fp); hit {
		if c.redeliverCached(ctx, req, artifact) {
			return
		}
		utils.LogWarn(ctx, "orchestrator: cache handle stale, falling through to full download")
	}

	allowed, checkRequired := c.gate.Evaluate(ctx, req.UserRef, req.LanguageTag, sourceKey)
	if !allowed {
		c.delivery.RecordFlyerAdShown(ctx, req, sourceKey)
		return
	}

	if !c.slots.AcquireUserSlot(ctx, req.UserRef) {
		c.sendPlain(ctx, req.ChatID, "You have too many downloads in progress. Please wait for one to finish.")
		return
	}
	defer c.slots.ReleaseUserSlot(ctx, req.UserRef)

	statusMsg, err := c.transport.SendMessage(ctx, req.ChatID, "Downloading...")
	if err != nil {
		utils.LogWarn(ctx, "orchestrator: status message failed", utils.Fields{"error": err.Error()})
	} else {
		req.StatusMsgID = statusMsg.MessageID
		c.progress.Start(ctx, req.ID, req.ChatID, req.StatusMsgID)
		defer c.progress.Stop(req.ID)
	}

	var scratchFiles []string
	defer func() { delivery.CleanupLocalFiles(scratchFiles...) }()

	if req.Platform == models.PlatformInstagram && req.Bucket != models.BucketInstagramStory {
		c.processInstagram(ctx, req, checkRequired, fp, &scratchFiles)
		return
	}

	chain := c.routing.GetChain(ctx, sourceKey)
	c.slots.MarkDownloadStart(ctx)
	result, outcome := c.exec.Execute(ctx, chain, req)
	c.slots.MarkDownloadEnd(ctx)
	if outcome != nil {
		c.failDownload(ctx, req, outcome)
		return
	}
	scratchFiles = append(scratchFiles, result.LocalFilePath)

	if result.IsPhoto {
		c.deliverPhotoResult(ctx, req, result, checkRequired, fp, &scratchFiles)
		return
	}

	c.deliverVideoResult(ctx, req, result, checkRequired, fp, &scratchFiles)
}

func (c *Core) deliverVideoResult(ctx context.Context, req *models.Request, result models.DownloadResult, flyerRequired bool, fp models.Fingerprint, scratchFiles *[]string) {
	totalStart := req.StartedAt

	fixed := c.postproc.FixVideo(ctx, result.LocalFilePath)
	faststarted := c.postproc.EnsureFaststart(ctx, fixed)
	*scratchFiles = append(*scratchFiles, fixed, faststarted)

	info, err := c.postproc.Probe(ctx, faststarted)
	if err != nil {
		utils.LogWarn(ctx, "orchestrator: post-probe failed", utils.Fields{"error": err.Error()})
	}

	isVerticalShort := req.Bucket == models.BucketYouTubeShorts || req.Bucket == models.BucketTikTokVideo || req.Bucket == models.BucketInstagramReel
	thumbnailPath := c.postproc.Thumbnail(ctx, faststarted, result.MediaInfo.ThumbnailRef, isVerticalShort)
	*scratchFiles = append(*scratchFiles, thumbnailPath)

	quality := qualityLabel(info.Height)
	caption := delivery.Caption(req, result.MediaInfo, quality, info.DurationSec)

	decision := delivery.Sizing(c.cfg.Provider, req.Bucket, result.FileSizeBytes)

	var handle string
	var uploadMs int64
	var deliverErr error
	deliveryKind := models.DeliveryVideo

	switch decision {
	case delivery.SizeRejected:
		c.sendPlain(ctx, req.ChatID, errormap.Render(errormap.KeyTooLarge))
		c.delivery.RecordFailure(ctx, req, []models.ProviderAttempt{{Provider: "sizing", ErrorText: "file too large", Class: models.ErrorClassHardKill}})
		return
	case delivery.SizeAsDoc:
		c.slots.MarkUploadStart(ctx)
		handle, uploadMs, deliverErr = c.delivery.DeliverDocument(ctx, req, faststarted, caption)
		c.slots.MarkUploadEnd(ctx)
		deliveryKind = models.DeliveryDocument
	default:
		c.slots.MarkUploadStart(ctx)
		handle, uploadMs, deliverErr = c.delivery.DeliverVideo(ctx, req, result, thumbnailPath, info.Width, info.Height, info.DurationSec, caption)
		c.slots.MarkUploadEnd(ctx)
	}

	if deliverErr != nil {
		c.failUpload(ctx, req, deliverErr)
		return
	}

	timing := delivery.StageTiming{
		PrepMs:        result.PrepMs,
		DownloadMs:    result.DownloadMs,
		UploadMs:      uploadMs,
		TotalMs:       time.Since(totalStart).Milliseconds(),
		FileSizeBytes: result.FileSizeBytes,
		DownloadHost:  result.DownloadHost,
		Bucket:        req.Bucket,
		Platform:      req.Platform,
		Type:          deliveryKind,
		FlyerRequired: flyerRequired,
		Quota:         result.Quota,
	}
	c.delivery.RecordSuccess(ctx, req, timing, fp, handle, "")
}

func (c *Core) deliverPhotoResult(ctx context.Context, req *models.Request, result models.DownloadResult, flyerRequired bool, fp models.Fingerprint, scratchFiles *[]string) {
	caption := delivery.Caption(req, result.MediaInfo, "", 0)
	c.slots.MarkUploadStart(ctx)
	handle, uploadMs, err := c.delivery.DeliverPhoto(ctx, req, result.LocalFilePath, caption)
	c.slots.MarkUploadEnd(ctx)
	if err != nil {
		c.failUpload(ctx, req, err)
		return
	}

	timing := delivery.StageTiming{
		PrepMs:        result.PrepMs,
		DownloadMs:    result.DownloadMs,
		UploadMs:      uploadMs,
		TotalMs:       time.Since(req.StartedAt).Milliseconds(),
		FileSizeBytes: result.FileSizeBytes,
		DownloadHost:  result.DownloadHost,
		Bucket:        req.Bucket,
		Platform:      req.Platform,
		Type:          models.DeliveryPhoto,
		FlyerRequired: flyerRequired,
		Quota:         result.Quota,
	}
	c.delivery.RecordSuccess(ctx, req, timing, fp, handle, "")
}

// processInstagram resolves every media item up front via RapidAPI's
// DownloadAll, since a post/reel only reveals whether it's a carousel
// after the provider responds (§4.1's post-download upgrade rule).
func (c *Core) processInstagram(ctx context.Context, req *models.Request, flyerRequired bool, fp models.Fingerprint, scratchFiles *[]string) {
	provider, ok := c.registry.Get("rapidapi")
	if !ok {
		c.sendPlain(ctx, req.ChatID, errormap.Render(errormap.KeyUnknown))
		return
	}
	rapidAPI, ok := provider.(*providers.RapidAPIProvider)
	if !ok {
		c.sendPlain(ctx, req.ChatID, errormap.Render(errormap.KeyUnknown))
		return
	}

	c.slots.MarkDownloadStart(ctx)
	carousel, err := rapidAPI.DownloadAll(ctx, req.ResolvedURL)
	c.slots.MarkDownloadEnd(ctx)
	if err != nil {
		c.failDownload(ctx, req, &executor.Outcome{
			FinalError:       err.Error(),
			PerProviderError: []models.ProviderAttempt{{Provider: "rapidapi", ErrorText: err.Error(), Class: executor.Classify(err.Error())}},
		})
		return
	}

	req.Bucket = intake.UpgradeToCarousel(req.Bucket, len(carousel.Items))
	for _, item := range carousel.Items {
		*scratchFiles = append(*scratchFiles, item.LocalFilePath)
	}

	if req.Bucket != models.BucketInstagramCarousel {
		c.deliverSingleInstagramItem(ctx, req, carousel.Items[0], flyerRequired, fp, scratchFiles)
		return
	}

	var items []transport.MediaItem
	for i, item := range carousel.Items {
		caption := ""
		if i == 0 {
			caption = delivery.Caption(req, item.MediaInfo, "", 0)
		}
		items = append(items, transport.MediaItem{MediaRef: item.LocalFilePath, IsPhoto: item.IsPhoto, Caption: caption})
	}

	c.slots.MarkUploadStart(ctx)
	uploadMs, err := c.delivery.DeliverCarousel(ctx, req, items)
	c.slots.MarkUploadEnd(ctx)
	if err != nil {
		c.failUpload(ctx, req, err)
		return
	}

	timing := delivery.StageTiming{
		UploadMs:      uploadMs,
		TotalMs:       time.Since(req.StartedAt).Milliseconds(),
		Bucket:        req.Bucket,
		Platform:      req.Platform,
		Type:          models.DeliveryCarousel,
		FlyerRequired: flyerRequired,
	}
	c.delivery.RecordSuccess(ctx, req, timing, "", "", "")
}

func (c *Core) deliverSingleInstagramItem(ctx context.Context, req *models.Request, item models.DownloadResult, flyerRequired bool, fp models.Fingerprint, scratchFiles *[]string) {
	if item.IsPhoto {
		c.deliverPhotoResult(ctx, req, item, flyerRequired, fp, scratchFiles)
		return
	}
	c.deliverVideoResult(ctx, req, item, flyerRequired, fp, scratchFiles)
}

// redeliverCached attempts to redeliver an already-cached artifact
// straight from its stored handle, skipping gate/slot/chain/post-process
// entirely. It reports whether the redelivery actually succeeded; a
// false return means the caller must fall through to a full download
// rather than treat a stale or rejected handle as the end of the
// request (§3's cache-handle invariant).
func (c *Core) redeliverCached(ctx context.Context, req *models.Request, artifact *models.DeliveredArtifact) bool {
	if artifact.VideoHandle == "" {
		return false
	}
	caption := delivery.Caption(req, models.MediaInfo{}, "", 0)
	c.slots.MarkUploadStart(ctx)
	_, _, err := c.delivery.DeliverVideo(ctx, req, models.DownloadResult{LocalFilePath: artifact.VideoHandle}, "", 0, 0, 0, caption)
	c.slots.MarkUploadEnd(ctx)
	if err != nil {
		utils.LogWarn(ctx, "orchestrator: cached redeliver failed", utils.Fields{"error": err.Error()})
		return false
	}
	return true
}

func (c *Core) failDownload(ctx context.Context, req *models.Request, outcome *executor.Outcome) {
	c.delivery.RecordFailure(ctx, req, outcome.PerProviderError)
	key := errormap.Map(outcome.FinalError)
	if req.Bucket == models.BucketInstagramStory {
		key = errormap.MapInstagramStory(outcome.FinalError)
	}
	c.sendPlain(ctx, req.ChatID, errormap.Render(key))
}

func (c *Core) failUpload(ctx context.Context, req *models.Request, err error) {
	c.delivery.RecordFailure(ctx, req, []models.ProviderAttempt{{Provider: "transport", ErrorText: err.Error(), Class: models.ErrorClassProviderBug}})
	c.sendPlain(ctx, req.ChatID, errormap.Render(errormap.Map(err.Error())))
}

func (c *Core) sendPlain(ctx context.Context, chatID int64, text string) {
	if _, err := c.transport.SendMessage(ctx, chatID, text); err != nil {
		utils.LogWarn(ctx, "orchestrator: send message failed", utils.Fields{"error": err.Error()})
	}
}

func qualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height > 0:
		return fmt.Sprintf("%dp", height)
	default:
		return "unknown"
	}
}
