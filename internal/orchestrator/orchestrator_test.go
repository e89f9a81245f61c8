package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/models"
	"github.com/socialgrab/downorc/internal/services/delivery"
	"github.com/socialgrab/downorc/internal/services/intake"
	"github.com/socialgrab/downorc/internal/services/transport"
)

func TestQualityLabel(t *testing.T) {
	cases := []struct {
		height int
		want   string
	}{
		{2160, "4K"},
		{2880, "4K"},
		{1080, "1080p"},
		{1440, "1080p"},
		{720, "720p"},
		{480, "480p"},
		{360, "360p"},
		{0, "unknown"},
		{-1, "unknown"},
	}

	for _, tc := range cases {
		if got := qualityLabel(tc.height); got != tc.want {
			t.Fatalf("qualityLabel(%d) = %q, want %q", tc.height, got, tc.want)
		}
	}
}

// fakeTransport records every SendMessage call; every other method is a
// no-op since none of the tested paths reach upload delivery.
type fakeTransport struct {
	transport.Transport
	sentTexts []string
	sendErr   error
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string) (transport.Message, error) {
	f.sentTexts = append(f.sentTexts, text)
	if f.sendErr != nil {
		return transport.Message{}, f.sendErr
	}
	return transport.Message{ChatID: chatID, MessageID: 1}, nil
}

type fakeCache struct {
	artifact *models.DeliveredArtifact
	hit      bool
	calls    int
}

func (f *fakeCache) Lookup(ctx context.Context, fp models.Fingerprint) (*models.DeliveredArtifact, bool) {
	f.calls++
	return f.artifact, f.hit
}

type fakeGate struct {
	allowed       bool
	checkRequired bool
	calls         int
}

func (f *fakeGate) Evaluate(ctx context.Context, userRef, languageTag string, sourceKey models.RoutingSourceKey) (bool, bool) {
	f.calls++
	return f.allowed, f.checkRequired
}

type fakeDelivery struct {
	deliverVideoHandle string
	deliverVideoErr    error
	deliverVideoCalls  int
	flyerShownCalls    int
}

func (f *fakeDelivery) DeliverVideo(ctx context.Context, req *models.Request, result models.DownloadResult, thumbnailPath string, width, height, durationSec int, caption string) (string, int64, error) {
	f.deliverVideoCalls++
	return f.deliverVideoHandle, 0, f.deliverVideoErr
}

func (f *fakeDelivery) DeliverDocument(ctx context.Context, req *models.Request, localPath, caption string) (string, int64, error) {
	return "", 0, nil
}

func (f *fakeDelivery) DeliverPhoto(ctx context.Context, req *models.Request, localPath, caption string) (string, int64, error) {
	return "", 0, nil
}

func (f *fakeDelivery) DeliverCarousel(ctx context.Context, req *models.Request, items []transport.MediaItem) (int64, error) {
	return 0, nil
}

func (f *fakeDelivery) RecordSuccess(ctx context.Context, req *models.Request, timing delivery.StageTiming, fp models.Fingerprint, videoHandle, audioHandle string) {
}

func (f *fakeDelivery) RecordFailure(ctx context.Context, req *models.Request, providersTried []models.ProviderAttempt) {
}

func (f *fakeDelivery) RecordFlyerAdShown(ctx context.Context, req *models.Request, sourceKey models.RoutingSourceKey) {
	f.flyerShownCalls++
}

type fakeSlots struct {
	acquireUserSlotCalls int
	acquireResult        bool
}

func (f *fakeSlots) AcquireUserSlot(ctx context.Context, userID string) bool {
	f.acquireUserSlotCalls++
	return f.acquireResult
}
func (f *fakeSlots) ReleaseUserSlot(ctx context.Context, userID string) {}
func (f *fakeSlots) MarkDownloadStart(ctx context.Context)              {}
func (f *fakeSlots) MarkDownloadEnd(ctx context.Context)                {}
func (f *fakeSlots) MarkUploadStart(ctx context.Context)                {}
func (f *fakeSlots) MarkUploadEnd(ctx context.Context)                  {}

func newTestCore(tr *fakeTransport, c *fakeCache, g *fakeGate, d *fakeDelivery, s *fakeSlots) *Core {
	return New(
		&config.Config{},
		tr,
		nil, // db: never dereferenced by Process on the tested paths
		nil, // kv
		nil, // registry
		s,
		nil, // routing
		c,
		nil, // progress
		nil, // exec
		nil, // postproc
		g,
		d,
		intake.NewResolver(time.Second),
		"test-bot",
	)
}

// TestProcessCacheHitSkipsGate confirms §2/§4.2's ordering: a cache hit
// redelivers and returns without ever invoking the gate.
func TestProcessCacheHitSkipsGate(t *testing.T) {
	tr := &fakeTransport{}
	c := &fakeCache{hit: true, artifact: &models.DeliveredArtifact{VideoHandle: "cached-handle"}}
	g := &fakeGate{allowed: true}
	d := &fakeDelivery{deliverVideoHandle: "redelivered"}
	s := &fakeSlots{acquireResult: true}

	core := newTestCore(tr, c, g, d, s)
	core.Process(context.Background(), Incoming{ChatID: 1, UserRef: "user-1", Text: "https://www.tiktok.com/@user/video/123"})

	if c.calls != 1 {
		t.Fatalf("expected cache.Lookup to be called once, got %d", c.calls)
	}
	if g.calls != 0 {
		t.Fatalf("expected gate.Evaluate to never be called on a cache hit, got %d calls", g.calls)
	}
	if d.deliverVideoCalls != 1 {
		t.Fatalf("expected DeliverVideo to be called once for the cached handle, got %d", d.deliverVideoCalls)
	}
	if s.acquireUserSlotCalls != 0 {
		t.Fatalf("expected no slot acquisition on a cache hit, got %d calls", s.acquireUserSlotCalls)
	}
}

// TestProcessCacheHitFallsThroughOnDeliveryFailure confirms §3's
// invariant: a stale/rejected cache handle must not be a dead end.
func TestProcessCacheHitFallsThroughOnDeliveryFailure(t *testing.T) {
	tr := &fakeTransport{}
	c := &fakeCache{hit: true, artifact: &models.DeliveredArtifact{VideoHandle: "stale-handle"}}
	g := &fakeGate{allowed: false}
	d := &fakeDelivery{deliverVideoErr: errors.New("handle rejected by transport")}
	s := &fakeSlots{acquireResult: true}

	core := newTestCore(tr, c, g, d, s)
	core.Process(context.Background(), Incoming{ChatID: 1, UserRef: "user-1", Text: "https://www.tiktok.com/@user/video/123"})

	if d.deliverVideoCalls != 1 {
		t.Fatalf("expected DeliverVideo to be attempted once for the stale handle, got %d", d.deliverVideoCalls)
	}
	if g.calls != 1 {
		t.Fatalf("expected gate.Evaluate to run after the cache redelivery failed, got %d calls", g.calls)
	}
	if d.flyerShownCalls != 1 {
		t.Fatalf("expected the fallthrough to reach the gate-blocked path, got %d flyer-shown calls", d.flyerShownCalls)
	}
}

// TestProcessGateBlockStopsShortOfSlotAndChain confirms a gate rejection
// stops the request before any slot is acquired or the chain is walked.
func TestProcessGateBlockStopsShortOfSlotAndChain(t *testing.T) {
	tr := &fakeTransport{}
	c := &fakeCache{hit: false}
	g := &fakeGate{allowed: false}
	d := &fakeDelivery{}
	s := &fakeSlots{acquireResult: true}

	core := newTestCore(tr, c, g, d, s)
	core.Process(context.Background(), Incoming{ChatID: 1, UserRef: "user-1", Text: "https://www.tiktok.com/@user/video/123"})

	if g.calls != 1 {
		t.Fatalf("expected gate.Evaluate to be called once, got %d", g.calls)
	}
	if d.flyerShownCalls != 1 {
		t.Fatalf("expected RecordFlyerAdShown to be called once, got %d", d.flyerShownCalls)
	}
	if s.acquireUserSlotCalls != 0 {
		t.Fatalf("expected no slot acquisition after a gate block, got %d calls", s.acquireUserSlotCalls)
	}
	if d.deliverVideoCalls != 0 {
		t.Fatalf("expected no delivery attempt after a gate block, got %d calls", d.deliverVideoCalls)
	}
}

// TestProcessIntakeMissSendsHintWithoutFurtherWork confirms §4.1/§7: no
// URL found sends the hint message and does nothing else.
func TestProcessIntakeMissSendsHintWithoutFurtherWork(t *testing.T) {
	tr := &fakeTransport{}
	c := &fakeCache{}
	g := &fakeGate{}
	d := &fakeDelivery{}
	s := &fakeSlots{}

	core := newTestCore(tr, c, g, d, s)
	core.Process(context.Background(), Incoming{ChatID: 1, UserRef: "user-1", Text: "just some chat text, no link here"})

	if len(tr.sentTexts) != 1 {
		t.Fatalf("expected exactly one hint message sent, got %d: %v", len(tr.sentTexts), tr.sentTexts)
	}
	if c.calls != 0 || g.calls != 0 {
		t.Fatalf("expected no cache or gate calls on an intake miss, got cache=%d gate=%d", c.calls, g.calls)
	}
}
