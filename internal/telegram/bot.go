package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fumble-backend/internal/analyses"
	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/shared/telemetry"
	"fumble-backend/internal/usage"
	"fumble-backend/internal/verdict"
)

const (
	introText   = "Send me a screenshot of your chat and I'll tell you if you fumbled. PNG, JPG or WEBP, up to 5MB."
	hintText    = "I only read screenshots. Send one as a photo or an image file."
	limitedText = "Easy there. Too many checks, try again in a minute."
	workingText = "Reading the vibes..."

	defaultWorkers = 4
)

// API is the slice of the Telegram client the bot needs.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Analyzer produces a verdict for one screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, shot analyses.Screenshot) (verdict.Result, error)
}

// Bot answers screenshots sent in Telegram chats with a verdict.
type Bot struct {
	API            API
	Analyzer       Analyzer
	Limiter        *ratelimit.Limiter
	Rule           ratelimit.Rule
	MaxUploadBytes int64
	HTTPClient     *http.Client
	Workers        int
}

// Run long-polls for updates until ctx is canceled, handling them on a
// bounded set of goroutines.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.API.GetUpdatesChan(u)

	workers := b.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	telemetry.Info("telegram.started", map[string]any{"workers": workers})
	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			telemetry.Info("telegram.stopped", nil)
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				defer func() { <-sem }()
				b.HandleUpdate(ctx, upd)
			}(upd)
		}
	}
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(msg, introText)
		case "health":
			b.reply(msg, "✅ OK")
		default:
			b.reply(msg, hintText)
		}
		return
	}

	fileID, declared, size, ok := pickImage(msg)
	if !ok {
		if msg.Document != nil {
			b.reply(msg, analyses.MessageUnsupportedType)
			return
		}
		b.reply(msg, hintText)
		return
	}

	clientKey := "chat:" + strconv.FormatInt(chatID, 10)
	if allowed, _ := b.Limiter.Allow(clientKey, b.Rule); !allowed {
		b.reply(msg, limitedText)
		return
	}

	maxBytes := b.maxUploadBytes()
	if size > maxBytes {
		b.reply(msg, analyses.MessageTooLarge)
		return
	}
	if declared != "" {
		if _, err := analyses.NormalizeContentType(declared, nil); err != nil {
			b.reply(msg, analyses.MessageUnsupportedType)
			return
		}
	}

	b.reply(msg, workingText)
	shot, err := b.download(ctx, fileID, declared, maxBytes)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	shot.ClientKey = clientKey

	res, err := b.Analyzer.Analyze(ctx, shot)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	b.reply(msg, FormatVerdict(res))
}

// FormatVerdict renders a verdict as a chat message.
func FormatVerdict(res verdict.Result) string {
	return fmt.Sprintf("%s\n\n%s\n\nTip: %s", res.Outcome, res.Roast, res.Tip)
}

// pickImage returns the largest photo size or an image document.
func pickImage(msg *tgbotapi.Message) (fileID, declared string, size int64, ok bool) {
	if len(msg.Photo) > 0 {
		ph := msg.Photo[len(msg.Photo)-1]
		return ph.FileID, "", int64(ph.FileSize), true
	}
	if doc := msg.Document; doc != nil {
		if strings.HasPrefix(strings.ToLower(doc.MimeType), "image/") {
			return doc.FileID, doc.MimeType, int64(doc.FileSize), true
		}
	}
	return "", "", 0, false
}

func (b *Bot) download(ctx context.Context, fileID, declared string, maxBytes int64) (analyses.Screenshot, error) {
	url, err := b.API.GetFileDirectURL(fileID)
	if err != nil {
		return analyses.Screenshot{}, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return analyses.Screenshot{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.httpClient().Do(req)
	if err != nil {
		return analyses.Screenshot{}, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return analyses.Screenshot{}, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return analyses.ReadScreenshot(resp.Body, declared, resp.ContentLength, maxBytes)
}

func (b *Bot) replyError(msg *tgbotapi.Message, err error) {
	text := analyses.MessageAnalysisFailed
	switch {
	case errors.Is(err, analyses.ErrNoImage):
		text = analyses.MessageNoImage
	case errors.Is(err, analyses.ErrUnsupportedType):
		text = analyses.MessageUnsupportedType
	case errors.Is(err, analyses.ErrTooLarge):
		text = analyses.MessageTooLarge
	case errors.Is(err, usage.ErrLimitReached):
		text = analyses.MessageLimitReached
	default:
		telemetry.Error("telegram.analysis_failed", map[string]any{
			"chat_id": msg.Chat.ID,
			"error":   err,
		})
	}
	b.reply(msg, text)
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.API.Send(out); err != nil {
		telemetry.Warn("telegram.send_failed", map[string]any{
			"chat_id": msg.Chat.ID,
			"error":   err,
		})
	}
}

func (b *Bot) maxUploadBytes() int64 {
	if b.MaxUploadBytes > 0 {
		return b.MaxUploadBytes
	}
	return analyses.DefaultMaxUploadBytes
}

func (b *Bot) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
