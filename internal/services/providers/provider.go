package providers

import (
	"context"

	"github.com/socialgrab/downorc/internal/models"
)

// ProgressUpdate is forwarded from a provider that exposes download
// progress (the ytdlp-family adapter) to the Progress Updater (§4.5,
// §4.9).
type ProgressUpdate struct {
	DownloadedBytes  int64
	TotalBytes       int64
	SpeedBytesPerSec float64
	Status           string
}

// ProgressCallback receives zero or more ProgressUpdate values over
// the lifetime of one Download call.
type ProgressCallback func(ProgressUpdate)

// Options bounds one provider invocation (§4.5, §6).
type Options struct {
	ConnectTimeoutSec int
	DownloadTimeoutSec int
	OnProgress         ProgressCallback
}

// Info is the lightweight metadata returned by GetInfo, used by the
// YouTube-duration preflight (§4.5).
type Info struct {
	Title        string
	DurationSec  int
	ThumbnailURL string
}

// Provider is the uniform capability every external SDK is wrapped
// behind (§4.5, §6, §9 "polymorphism over providers"). All three
// methods treat the underlying SDK as an opaque black box returning a
// local file path or an error — the SDK call itself is out of scope.
type Provider interface {
	Name() string
	Download(ctx context.Context, url string, opts Options) (models.DownloadResult, error)
}

// InfoProvider is an optional capability: a best-effort metadata probe
// used ahead of the full download (e.g. the YouTube duration
// preflight).
type InfoProvider interface {
	GetInfo(ctx context.Context, url string) (Info, error)
}

// AudioProvider is an optional capability for providers that can fetch
// just the audio track directly.
type AudioProvider interface {
	DownloadAudio(ctx context.Context, url string) (models.DownloadResult, error)
}

// Registry maps a routing chain's provider names to implementations.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}
