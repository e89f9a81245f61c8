package gate

import (
	"context"
	"time"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/database"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/utils"
)

// alwaysFreeSourceKeys mirrors should_check_subscription's platform
// allowlist (§4.9, flyer_checker.py).
var alwaysFreeSourceKeys = map[models.RoutingSourceKey]bool{
	models.SourceKeyTikTok:        true,
	models.SourceKeyPinterest:     true,
	models.SourceKeyYouTubeShorts: true,
}

// SubscriptionChecker is the external proof-of-subscription service
// (§6 "Gate service"). On a false return it has already rendered its
// own prompt to the user; the Gate itself does nothing further.
type SubscriptionChecker interface {
	Check(ctx context.Context, userRef, languageTag string) (bool, error)
}

// Gate implements the FlyerService-style monetization precondition
// (§4.9).
type Gate struct {
	store   *database.PostgresDB
	checker SubscriptionChecker
	cfg     config.GateConfig
}

func New(store *database.PostgresDB, checker SubscriptionChecker, cfg config.GateConfig) *Gate {
	return &Gate{store: store, checker: checker, cfg: cfg}
}

// ShouldCheckSubscription decides whether this download requires a
// gate check, per the free-days/free-downloads/platform/per-bucket
// rules (§4.9). Any stats-lookup error fails open (returns false).
func (g *Gate) ShouldCheckSubscription(ctx context.Context, userRef string, sourceKey models.RoutingSourceKey) bool {
	stats, err := g.store.GetUserDownloadStats(ctx, userRef)
	if err != nil {
		utils.LogWarn(ctx, "gate: user stats lookup failed, failing open", utils.Fields{"user": userRef, "error": err.Error()})
		return false
	}

	daysSinceRegistration := int(time.Since(stats.FirstSeenAt).Hours() / 24)
	if daysSinceRegistration < g.cfg.FreeDays {
		return false
	}
	if stats.TotalDownloads < g.cfg.FreeDownloads {
		return false
	}

	if alwaysFreeSourceKeys[sourceKey] {
		return false
	}

	if sourceKey == models.SourceKeyYouTubeFull {
		return stats.YouTubeFullCount >= g.cfg.YoutubeFullFreeCount
	}

	if isInstagramSourceKey(sourceKey) {
		nextCount := stats.InstagramCount + 1
		return nextCount%g.cfg.InstagramCheckEvery == 0
	}

	return false
}

func isInstagramSourceKey(sourceKey models.RoutingSourceKey) bool {
	switch sourceKey {
	case models.SourceKeyInstagramReel, models.SourceKeyInstagramPost,
		models.SourceKeyInstagramStory, models.SourceKeyInstagramCarousel:
		return true
	default:
		return false
	}
}

// Evaluate runs the full gate: if a check is required and the external
// proof is missing, it returns false (the external service has already
// rendered its own prompt) and the caller must abort the request with
// no slot acquired and no work done beyond a flyer_ad_shown telemetry
// row. On a checker error, fails open (§4.9).
func (g *Gate) Evaluate(ctx context.Context, userRef, languageTag string, sourceKey models.RoutingSourceKey) (allowed bool, checkWasRequired bool) {
	if !g.ShouldCheckSubscription(ctx, userRef, sourceKey) {
		return true, false
	}

	subscribed, err := g.checker.Check(ctx, userRef, languageTag)
	if err != nil {
		utils.LogWarn(ctx, "gate: subscription check failed, failing open", utils.Fields{"user": userRef, "error": err.Error()})
		return true, true
	}

	return subscribed, true
}
