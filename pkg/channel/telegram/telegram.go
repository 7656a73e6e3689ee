package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/asimzulfiqar/LifeLogger/pkg/bus"
	"github.com/asimzulfiqar/LifeLogger/pkg/channel"
	"github.com/asimzulfiqar/LifeLogger/pkg/config"
	"github.com/asimzulfiqar/LifeLogger/pkg/telemetry"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const actionRefreshInterval = 4 * time.Second
const downloadTimeout = 60 * time.Second

// Adapter bridges Telegram updates into LifeLogger events.
//
// It decides each update's payload kind exactly once, so downstream code
// receives a closed variant instead of probing optional message fields.
// It also implements logbook.Downloader for attachment payloads.
type Adapter struct {
	cfg        config.TelegramConfig
	bot        *telego.Bot
	allowFrom  map[string]struct{}
	httpClient *http.Client
	log        *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram.token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:        cfg,
		bot:        bot,
		allowFrom:  allowFromSet(cfg.AllowFrom),
		httpClient: &http.Client{Timeout: downloadTimeout},
		log:        log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in event metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards events through the handler.
//
// Handler failures are downgraded to an error reply for the sender; they
// never terminate the polling loop.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}
			if message.From == nil {
				a.log.Debug("Ignoring message without sender")
				continue
			}

			senderID := strconv.FormatInt(message.From.ID, 10)
			if !a.senderAllowed(senderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			if strings.HasPrefix(strings.TrimSpace(message.Text), "/") {
				a.log.Debug("Ignoring command message", "sender_id", senderID)
				continue
			}

			event := classifyMessage(message)
			event.EventID = uuid.NewString()
			event.SenderID = senderID
			event.Metadata = map[string]string{
				"update_id": strconv.Itoa(update.UpdateID),
			}

			telemetry.CountEvent(string(event.Kind))
			a.log.Info("Received message",
				"event_id", event.EventID,
				"chat_id", event.ChatID,
				"sender_id", senderID,
				"kind", string(event.Kind),
				"content", previewText(event.Text),
			)

			stopAction := a.startChatAction(ctx, message.Chat.ID, actionForKind(event.Kind))

			reply, err := handler(ctx, event)
			stopAction()
			if err != nil {
				a.log.Error("Failed to process inbound event", "event_id", event.EventID, "error", err)
				reply = bus.Reply{Text: "Failed to process message: " + err.Error()}
			}

			responseText := strings.TrimSpace(reply.Text)
			if responseText == "" {
				continue
			}
			a.log.Info("Sending reply", "event_id", event.EventID, "chat_id", event.ChatID, "content", previewText(responseText))

			if _, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), responseText)); err != nil {
				a.log.Error("Failed to send telegram message", "event_id", event.EventID, "error", err)
				continue
			}
			telemetry.CountReply()
		}
	}
}

// Download fetches one Telegram file to destPath. Implements logbook.Downloader.
func (a *Adapter) Download(ctx context.Context, fileID string, destPath string) error {
	file, err := a.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return fmt.Errorf("resolve telegram file: %w", err)
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return errors.New("telegram returned no file path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.bot.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download telegram file: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("write download file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close download file: %w", err)
	}

	return nil
}

// classifyMessage maps one Telegram message onto the event variant the
// pipeline consumes. First match wins; the order mirrors the payload
// priority of the classification contract.
func classifyMessage(message *telego.Message) bus.Event {
	event := bus.Event{
		Channel:    channelName,
		ChatID:     strconv.FormatInt(message.Chat.ID, 10),
		MessageID:  message.MessageID,
		Kind:       bus.KindUnknown,
		ReceivedAt: time.Now(),
		Caption:    strings.TrimSpace(message.Caption),
	}

	switch {
	case message.Venue != nil:
		event.Kind = bus.KindLocation
		event.Location = &bus.Location{
			Latitude:  message.Venue.Location.Latitude,
			Longitude: message.Venue.Location.Longitude,
		}
		event.Venue = &bus.Venue{
			Title:   message.Venue.Title,
			Address: message.Venue.Address,
		}
	case message.Location != nil:
		event.Kind = bus.KindLocation
		event.Location = &bus.Location{
			Latitude:  message.Location.Latitude,
			Longitude: message.Location.Longitude,
		}
	case message.Document != nil:
		event.Kind = bus.KindDocument
		event.Attachment = &bus.Attachment{
			FileID:   message.Document.FileID,
			FileName: message.Document.FileName,
		}
	case message.Voice != nil:
		event.Kind = bus.KindVoice
		event.Attachment = &bus.Attachment{
			FileID: message.Voice.FileID,
			Ext:    ".ogg",
		}
	case len(message.Photo) > 0:
		event.Kind = bus.KindPhoto
		event.Attachment = &bus.Attachment{
			FileID: largestPhoto(message.Photo).FileID,
			Ext:    ".jpg",
		}
	case message.Video != nil:
		event.Kind = bus.KindVideo
		event.Attachment = &bus.Attachment{
			FileID: message.Video.FileID,
			Ext:    ".mp4",
		}
	case strings.TrimSpace(message.Text) != "":
		event.Kind = bus.KindText
		event.Text = strings.TrimSpace(message.Text)
	}

	return event
}

// largestPhoto picks the highest-resolution variant. Telegram sends variants
// smallest first, but area is compared rather than trusting the order.
func largestPhoto(sizes []telego.PhotoSize) telego.PhotoSize {
	best := sizes[0]
	for _, size := range sizes[1:] {
		if size.Width*size.Height > best.Width*best.Height {
			best = size
		}
	}

	return best
}

// actionForKind picks the chat action shown while an event is processed.
func actionForKind(kind bus.Kind) string {
	switch kind {
	case bus.KindVoice, bus.KindPhoto, bus.KindDocument, bus.KindVideo:
		return telego.ChatActionUploadDocument
	default:
		return telego.ChatActionTyping
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startChatAction sends an initial chat action and refreshes it periodically
// until the returned cancel function is called.
func (a *Adapter) startChatAction(ctx context.Context, chatID int64, action string) context.CancelFunc {
	actionCtx, cancel := context.WithCancel(ctx)

	sendAction := func() {
		if err := a.bot.SendChatAction(actionCtx, tu.ChatAction(tu.ID(chatID), action)); err != nil && actionCtx.Err() == nil {
			a.log.Debug("Failed to send chat action", "chat_id", chatID, "error", err)
		}
	}

	sendAction()

	go func() {
		ticker := time.NewTicker(actionRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-actionCtx.Done():
				return
			case <-ticker.C:
				sendAction()
			}
		}
	}()

	return cancel
}
