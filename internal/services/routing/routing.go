package routing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/utils"
)

const (
	defaultDownloadTimeoutSec = 60
	defaultConnectTimeoutSec  = 5
)

// defaultChains mirrors the source's DEFAULT_CHAINS table (§4.4).
var defaultChains = map[models.RoutingSourceKey][]string{
	models.SourceKeyYouTubeFull:       {"ytdlp", "pytubefix", "savenow"},
	models.SourceKeyYouTubeShorts:     {"ytdlp", "pytubefix", "savenow"},
	models.SourceKeyTikTok:            {"ytdlp", "rapidapi"},
	models.SourceKeyPinterest:         {"ytdlp", "rapidapi"},
	models.SourceKeyInstagramReel:     {"rapidapi"},
	models.SourceKeyInstagramPost:     {"rapidapi"},
	models.SourceKeyInstagramStory:    {"rapidapi"},
	models.SourceKeyInstagramCarousel: {"rapidapi"},
}

// Engine reads per-source provider chains, with overrides, from the
// config store (§4.4).
type Engine struct {
	store *kv.Store
}

func New(store *kv.Store) *Engine {
	return &Engine{store: store}
}

// GetChain resolves a ProviderChain by (1) time-bounded override,
// (2) saved chain, (3) built-in default. Any store read error logs and
// falls through to the next layer — never fatal.
func (e *Engine) GetChain(ctx context.Context, sourceKey models.RoutingSourceKey) models.ProviderChain {
	if chain, ok := e.lookupOverride(ctx, sourceKey); ok {
		return chain
	}
	if chain, ok := e.lookupSaved(ctx, sourceKey); ok {
		return chain
	}
	return e.defaultChain(sourceKey)
}

func (e *Engine) lookupOverride(ctx context.Context, sourceKey models.RoutingSourceKey) (models.ProviderChain, bool) {
	raw, found, err := e.store.Get(ctx, kv.RoutingOverrideKey(string(sourceKey)))
	if err != nil {
		utils.LogWarn(ctx, "routing engine: override lookup failed, falling through", utils.Fields{"source_key": string(sourceKey), "error": err.Error()})
		return models.ProviderChain{}, false
	}
	if !found {
		return models.ProviderChain{}, false
	}

	var override models.RoutingOverride
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		utils.LogWarn(ctx, "routing engine: override decode failed, falling through", utils.Fields{"source_key": string(sourceKey), "error": err.Error()})
		return models.ProviderChain{}, false
	}

	if !override.ExpiresAt.After(time.Now()) {
		return models.ProviderChain{}, false
	}

	specs := make([]models.ProviderSpec, 0, len(override.Chain))
	for _, name := range override.Chain {
		specs = append(specs, models.ProviderSpec{
			Name:               name,
			Enabled:            true,
			DownloadTimeoutSec: defaultDownloadTimeoutSec,
			ConnectTimeoutSec:  defaultConnectTimeoutSec,
		})
	}

	return models.ProviderChain{SourceKey: sourceKey, Providers: specs, IsOverride: true}, true
}

func (e *Engine) lookupSaved(ctx context.Context, sourceKey models.RoutingSourceKey) (models.ProviderChain, bool) {
	raw, found, err := e.store.Get(ctx, kv.RoutingKey(string(sourceKey)))
	if err != nil {
		utils.LogWarn(ctx, "routing engine: saved chain lookup failed, falling through", utils.Fields{"source_key": string(sourceKey), "error": err.Error()})
		return models.ProviderChain{}, false
	}
	if !found {
		return models.ProviderChain{}, false
	}

	var specs []models.ProviderSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		utils.LogWarn(ctx, "routing engine: saved chain decode failed, falling through", utils.Fields{"source_key": string(sourceKey), "error": err.Error()})
		return models.ProviderChain{}, false
	}

	return models.ProviderChain{SourceKey: sourceKey, Providers: applyDefaults(specs)}, true
}

func (e *Engine) defaultChain(sourceKey models.RoutingSourceKey) models.ProviderChain {
	names := defaultChains[sourceKey]
	specs := make([]models.ProviderSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, models.ProviderSpec{
			Name:               name,
			Enabled:            true,
			DownloadTimeoutSec: defaultDownloadTimeoutSec,
			ConnectTimeoutSec:  defaultConnectTimeoutSec,
		})
	}
	return models.ProviderChain{SourceKey: sourceKey, Providers: specs}
}

// applyDefaults fills zero-valued timeout fields with the package
// defaults — saved chains may have been written before a timeout
// field existed, or may omit it intentionally.
func applyDefaults(specs []models.ProviderSpec) []models.ProviderSpec {
	for i := range specs {
		if specs[i].DownloadTimeoutSec == 0 {
			specs[i].DownloadTimeoutSec = defaultDownloadTimeoutSec
		}
		if specs[i].ConnectTimeoutSec == 0 {
			specs[i].ConnectTimeoutSec = defaultConnectTimeoutSec
		}
	}
	return specs
}

// EnabledProviders filters a chain down to its enabled entries, in
// order.
func EnabledProviders(chain models.ProviderChain) []models.ProviderSpec {
	enabled := make([]models.ProviderSpec, 0, len(chain.Providers))
	for _, spec := range chain.Providers {
		if spec.Enabled {
			enabled = append(enabled, spec)
		}
	}
	return enabled
}

// SetOverride persists a time-bounded override for sourceKey.
func (e *Engine) SetOverride(ctx context.Context, sourceKey models.RoutingSourceKey, chain []string, ttl time.Duration) error {
	override := models.RoutingOverride{Chain: chain, ExpiresAt: time.Now().Add(ttl)}
	encoded, err := json.Marshal(override)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, kv.RoutingOverrideKey(string(sourceKey)), string(encoded), ttl)
}
