package transport

import (
	"context"
	"time"
)

// MediaItem is one entry of a sendMediaGroup call (§6).
type MediaItem struct {
	MediaRef string // local file path or an opaque handle from a previous send
	IsPhoto  bool
	Caption  string // only index 0's caption is rendered by the messenger
}

// Message is the minimal shape the core needs back from a send, to
// obtain a message id for later progress edits.
type Message struct {
	ChatID    int64
	MessageID int
}

// Transport is the messenger black-box (§1, §6): receiving messages,
// sending files. The core only consumes this narrow surface.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) (Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error

	SendPhoto(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (handle string, err error)
	SendVideo(ctx context.Context, chatID int64, mediaRef, caption, thumbnailPath string, width, height, durationSec int, supportsStreaming bool, timeout time.Duration) (handle string, err error)
	SendAudio(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (handle string, err error)
	SendDocument(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (handle string, err error)
	SendMediaGroup(ctx context.Context, chatID int64, items []MediaItem, timeout time.Duration) error
}

// TransportError wraps a transport failure with the two classes the
// core's retry policy distinguishes (§6, §4.7): "forbidden" means the
// user blocked the bot; everything transient/permanent is inferred by
// the delivery stage from Error()'s text via the same substring
// heuristics as provider errors.
type TransportError struct {
	Forbidden bool
	Raw       string
}

func (e *TransportError) Error() string { return e.Raw }
