package transport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialgrab/downorc/internal/config"
)

// TelegramTransport implements Transport over the Telegram Bot API,
// adapted from the teacher's BotClient (bot_client.go) — same client
// construction idiom, generalized from channel-media retrieval to the
// send-side surface this service actually needs.
type TelegramTransport struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramTransport(cfg *config.TelegramConfig) (*TelegramTransport, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramTransport{bot: bot}, nil
}

func (t *TelegramTransport) SendMessage(ctx context.Context, chatID int64, text string) (Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := t.bot.Send(msg)
	if err != nil {
		return Message{}, wrapTelegramError(err)
	}
	return Message{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *TelegramTransport) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := t.bot.Send(edit)
	if err != nil {
		return wrapTelegramError(err)
	}
	return nil
}

func (t *TelegramTransport) SendPhoto(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (string, error) {
	photo := tgbotapi.NewPhoto(chatID, fileFromRef(mediaRef))
	photo.Caption = caption

	sent, err := t.bot.Send(photo)
	if err != nil {
		return "", wrapTelegramError(err)
	}
	return largestPhotoFileID(sent), nil
}

func (t *TelegramTransport) SendVideo(ctx context.Context, chatID int64, mediaRef, caption, thumbnailPath string, width, height, durationSec int, supportsStreaming bool, timeout time.Duration) (string, error) {
	video := tgbotapi.NewVideo(chatID, fileFromRef(mediaRef))
	video.Caption = caption
	video.Width = width
	video.Height = height
	video.Duration = durationSec
	video.SupportsStreaming = supportsStreaming
	if thumbnailPath != "" {
		video.Thumb = tgbotapi.FilePath(thumbnailPath)
	}

	sent, err := t.bot.Send(video)
	if err != nil {
		return "", wrapTelegramError(err)
	}
	if sent.Video != nil {
		return sent.Video.FileID, nil
	}
	return "", nil
}

func (t *TelegramTransport) SendAudio(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (string, error) {
	audio := tgbotapi.NewAudio(chatID, fileFromRef(mediaRef))
	audio.Caption = caption

	sent, err := t.bot.Send(audio)
	if err != nil {
		return "", wrapTelegramError(err)
	}
	if sent.Audio != nil {
		return sent.Audio.FileID, nil
	}
	return "", nil
}

func (t *TelegramTransport) SendDocument(ctx context.Context, chatID int64, mediaRef, caption string, timeout time.Duration) (string, error) {
	doc := tgbotapi.NewDocument(chatID, fileFromRef(mediaRef))
	doc.Caption = caption

	sent, err := t.bot.Send(doc)
	if err != nil {
		return "", wrapTelegramError(err)
	}
	if sent.Document != nil {
		return sent.Document.FileID, nil
	}
	return "", nil
}

func (t *TelegramTransport) SendMediaGroup(ctx context.Context, chatID int64, items []MediaItem, timeout time.Duration) error {
	group := make([]interface{}, 0, len(items))
	for i, item := range items {
		caption := ""
		if i == 0 {
			caption = item.Caption
		}

		if item.IsPhoto {
			photo := tgbotapi.NewInputMediaPhoto(fileFromRef(item.MediaRef))
			photo.Caption = caption
			group = append(group, photo)
		} else {
			video := tgbotapi.NewInputMediaVideo(fileFromRef(item.MediaRef))
			video.Caption = caption
			group = append(group, video)
		}
	}

	mediaGroup := tgbotapi.NewMediaGroup(chatID, group)
	_, err := t.bot.SendMediaGroup(mediaGroup)
	if err != nil {
		return wrapTelegramError(err)
	}
	return nil
}

// fileFromRef treats mediaRef as an opaque handle when it doesn't
// look like a local path, and as a local file otherwise (§6).
func fileFromRef(mediaRef string) tgbotapi.RequestFileData {
	if _, err := os.Stat(mediaRef); err == nil {
		return tgbotapi.FilePath(mediaRef)
	}
	return tgbotapi.FileID(mediaRef)
}

func largestPhotoFileID(msg tgbotapi.Message) string {
	if len(msg.Photo) == 0 {
		return ""
	}
	return msg.Photo[len(msg.Photo)-1].FileID
}

func wrapTelegramError(err error) error {
	text := err.Error()
	forbidden := strings.Contains(strings.ToLower(text), "forbidden")
	return &TransportError{Forbidden: forbidden, Raw: text}
}
