package slots

import (
	"context"
	"time"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/utils"
)

const observabilityTTL = 5 * time.Minute

// Controller implements the per-user and ffmpeg-global concurrency
// caps (§4.3). Every acquire/release is advisory: a store error never
// blocks work (fail-open).
type Controller struct {
	store  *kv.Store
	cfg    config.SlotConfig
}

func New(store *kv.Store, cfg config.SlotConfig) *Controller {
	return &Controller{store: store, cfg: cfg}
}

// AcquireUserSlot increments downloads:user:<id>; on a store error it
// fails open. Returns false only when the cap is genuinely exceeded.
func (c *Controller) AcquireUserSlot(ctx context.Context, userID string) bool {
	ok, err := c.store.IncrWithCap(ctx, kv.UserDownloadsKey(userID), int64(c.cfg.PerUserLimit), c.cfg.PerUserTTL)
	if err != nil {
		utils.LogWarn(ctx, "slot controller: user slot store error, failing open", utils.Fields{"user": userID, "error": err.Error()})
		return true
	}
	return ok
}

// ReleaseUserSlot decrements the per-user counter, clamped at zero.
func (c *Controller) ReleaseUserSlot(ctx context.Context, userID string) {
	if err := c.store.Decr(ctx, kv.UserDownloadsKey(userID)); err != nil {
		utils.LogWarn(ctx, "slot controller: user slot release failed", utils.Fields{"user": userID, "error": err.Error()})
	}
}

// AcquireFFmpegSlot increments ffmpeg:active. Best-effort / advisory
// only — the spec does not require hard preemption of a post-process
// step that proceeds without a slot.
func (c *Controller) AcquireFFmpegSlot(ctx context.Context) bool {
	ok, err := c.store.IncrWithCap(ctx, kv.FFmpegActiveKey, int64(c.cfg.FFmpegGlobalCap), c.cfg.FFmpegGlobalTTL)
	if err != nil {
		utils.LogWarn(ctx, "slot controller: ffmpeg slot store error, failing open", utils.Fields{"error": err.Error()})
		return true
	}
	return ok
}

func (c *Controller) ReleaseFFmpegSlot(ctx context.Context) {
	if err := c.store.Decr(ctx, kv.FFmpegActiveKey); err != nil {
		utils.LogWarn(ctx, "slot controller: ffmpeg slot release failed", utils.Fields{"error": err.Error()})
	}
}

// MarkDownloadStart/MarkDownloadEnd and MarkUploadStart/MarkUploadEnd
// bump the purely observational counters at the boundaries of the
// orchestrated request and the upload call respectively (§4.3).
func (c *Controller) MarkDownloadStart(ctx context.Context) {
	c.store.IncrObservability(ctx, kv.ActiveDownloadsKey, observabilityTTL)
}

func (c *Controller) MarkDownloadEnd(ctx context.Context) {
	c.store.DecrObservability(ctx, kv.ActiveDownloadsKey)
}

func (c *Controller) MarkUploadStart(ctx context.Context) {
	c.store.IncrObservability(ctx, kv.ActiveUploadsKey, observabilityTTL)
}

func (c *Controller) MarkUploadEnd(ctx context.Context) {
	c.store.DecrObservability(ctx, kv.ActiveUploadsKey)
}
