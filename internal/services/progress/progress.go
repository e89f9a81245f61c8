package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/utils"
)

const tickInterval = 60 * time.Second

// Snapshot is the latest progress sample reported by a provider.
type Snapshot struct {
	DownloadedBytes int64
	TotalBytes      int64
}

// MessageEditor is the narrow slice of the messenger transport the
// Progress Updater needs — editing the original status message
// in-place (§4.9, §6 editMessageText).
type MessageEditor interface {
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
}

type session struct {
	chatID    int64
	messageID int
	cancel    chan struct{}

	mu       sync.Mutex
	snapshot Snapshot
	hasData  bool
}

// Updater runs one cooperative background task per in-flight request,
// waking every 60s to edit the status message with a progress line
// (§4.9). Cancelled via a single-shot signal when the request
// completes.
type Updater struct {
	transport MessageEditor

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func New(transport MessageEditor) *Updater {
	return &Updater{transport: transport, sessions: make(map[uuid.UUID]*session)}
}

// Start launches the ticking goroutine for requestID. Call Stop when
// the request reaches a terminal state, exactly once.
func (u *Updater) Start(ctx context.Context, requestID uuid.UUID, chatID int64, messageID int) {
	s := &session{chatID: chatID, messageID: messageID, cancel: make(chan struct{})}

	u.mu.Lock()
	u.sessions[requestID] = s
	u.mu.Unlock()

	go u.run(ctx, requestID, s)
}

func (u *Updater) run(ctx context.Context, requestID uuid.UUID, s *session) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.cancel:
			return
		case <-ticker.C:
			elapsedMin := int(time.Since(start).Minutes())
			text := renderProgressText(elapsedMin, s.snapshotCopy())
			if err := u.transport.EditMessageText(ctx, s.chatID, s.messageID, text); err != nil {
				utils.LogWarn(ctx, "progress updater: edit message failed", utils.Fields{"request_id": requestID.String(), "error": err.Error()})
			}
		}
	}
}

func (s *session) snapshotCopy() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Report records the latest byte counts for requestID; picked up by
// the next tick.
func (u *Updater) Report(requestID uuid.UUID, snap Snapshot) {
	u.mu.Lock()
	s, ok := u.sessions[requestID]
	u.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.snapshot = snap
	s.hasData = snap.TotalBytes > 0
	s.mu.Unlock()
}

// Stop cancels the ticking goroutine for requestID. Safe to call more
// than once; only the first call has an effect.
func (u *Updater) Stop(requestID uuid.UUID) {
	u.mu.Lock()
	s, ok := u.sessions[requestID]
	if ok {
		delete(u.sessions, requestID)
	}
	u.mu.Unlock()

	if ok {
		close(s.cancel)
	}
}

func renderProgressText(elapsedMin int, snap Snapshot) string {
	if snap.TotalBytes > 0 {
		downloadedMB := float64(snap.DownloadedBytes) / (1024 * 1024)
		totalMB := float64(snap.TotalBytes) / (1024 * 1024)
		return fmt.Sprintf("Downloading... %d min, %.1f MB / %.1f MB", elapsedMin, downloadedMB, totalMB)
	}
	return fmt.Sprintf("Downloading... %d min, please wait", elapsedMin)
}
