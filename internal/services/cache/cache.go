package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/services/intake"
	"github.com/socialgrab/downorc/internal/utils"
)

const ttl = 7 * 24 * time.Hour

// ArtifactCache maps a request fingerprint to previously-delivered
// upload handles, backed by the key-value store (§4.2).
type ArtifactCache struct {
	store *kv.Store
}

func New(store *kv.Store) *ArtifactCache {
	return &ArtifactCache{store: store}
}

// Fingerprint is the MD5 of the canonical resolved URL (§4.2).
func Fingerprint(resolvedURL string) models.Fingerprint {
	return models.Fingerprint(utils.MD5Hex(intake.Canonicalize(resolvedURL)))
}

func cacheKey(fp models.Fingerprint) string {
	return fmt.Sprintf("artifact:%s", fp)
}

// Lookup returns the stored handles for fp, if any. A read error is
// treated as a cache miss (fail-open) and logged, never fatal.
func (c *ArtifactCache) Lookup(ctx context.Context, fp models.Fingerprint) (*models.DeliveredArtifact, bool) {
	raw, found, err := c.store.Get(ctx, cacheKey(fp))
	if err != nil {
		utils.LogWarn(ctx, "artifact cache lookup failed", utils.Fields{"fingerprint": string(fp), "error": err.Error()})
		return nil, false
	}
	if !found {
		return nil, false
	}

	var artifact models.DeliveredArtifact
	if err := json.Unmarshal([]byte(raw), &artifact); err != nil {
		utils.LogWarn(ctx, "artifact cache decode failed", utils.Fields{"fingerprint": string(fp), "error": err.Error()})
		return nil, false
	}
	return &artifact, true
}

// Store persists handles for fp with a 7-day TTL. videoHandle and/or
// audioHandle may be empty when only one media role was delivered.
func (c *ArtifactCache) Store(ctx context.Context, fp models.Fingerprint, videoHandle, audioHandle string) {
	artifact := models.DeliveredArtifact{
		Fingerprint: fp,
		VideoHandle: videoHandle,
		AudioHandle: audioHandle,
		StoredAt:    time.Now(),
	}

	encoded, err := json.Marshal(artifact)
	if err != nil {
		utils.LogWarn(ctx, "artifact cache encode failed", utils.Fields{"fingerprint": string(fp), "error": err.Error()})
		return
	}

	if err := c.store.Set(ctx, cacheKey(fp), string(encoded), ttl); err != nil {
		utils.LogWarn(ctx, "artifact cache store failed", utils.Fields{"fingerprint": string(fp), "error": err.Error()})
	}
}
