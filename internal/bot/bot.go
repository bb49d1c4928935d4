package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const pollTimeoutSeconds = 30

// Bot is the Telegram long-poll transport. It normalizes updates into
// Incoming values, hands them to the handler on a goroutine per update,
// and sends the reply.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	http    *http.Client
	log     zerolog.Logger
}

func New(token string, handler *Handler, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot.New: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")
	return &Bot{
		api:     api,
		handler: handler,
		http:    http.DefaultClient,
		log:     log,
	}, nil
}

// Run polls for updates until the context is cancelled. In-flight
// updates are drained before returning.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.dispatch(ctx, update)
			}()
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	in := Incoming{ChatID: msg.Chat.ID, Text: msg.Text}
	if in.Text == "" {
		in.Text = msg.Caption
	}

	switch {
	case msg.Voice != nil:
		att, err := b.download(ctx, msg.Voice.FileID, "voice.ogg", msg.Voice.MimeType)
		if err != nil {
			b.log.Error().Err(err).Msg("voice download failed")
			b.send(msg.Chat.ID, Reply{Text: msgInternal})
			return
		}
		in.Voice = att
	case len(msg.Photo) > 0:
		// Telegram sends multiple sizes; the last is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		att, err := b.download(ctx, photo.FileID, "photo.jpg", "image/jpeg")
		if err != nil {
			b.log.Error().Err(err).Msg("photo download failed")
			b.send(msg.Chat.ID, Reply{Text: msgInternal})
			return
		}
		in.Photo = att
	case msg.Document != nil && isImage(msg.Document.MimeType):
		att, err := b.download(ctx, msg.Document.FileID, msg.Document.FileName, msg.Document.MimeType)
		if err != nil {
			b.log.Error().Err(err).Msg("document download failed")
			b.send(msg.Chat.ID, Reply{Text: msgInternal})
			return
		}
		in.Photo = att
	}

	b.send(msg.Chat.ID, b.handler.HandleMessage(ctx, in))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack failed")
	}
	if cq.Message == nil {
		return
	}

	chatID := cq.Message.Chat.ID
	b.send(chatID, b.handler.HandleCallback(ctx, chatID, cq.Data))
}

func (b *Bot) send(chatID int64, reply Reply) {
	if reply.Text == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Keyboard != nil {
		msg.ReplyMarkup = *reply.Keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("sending reply failed")
	}
}

func (b *Bot) download(ctx context.Context, fileID, fallbackName, mimeType string) (*Attachment, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("download: file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: reading body: %w", err)
	}

	return &Attachment{Filename: fallbackName, Data: data, MIMEType: mimeType}, nil
}

func isImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}
