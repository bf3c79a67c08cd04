package bot

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
)

// maxMessageLength is Telegram's limit for one text message
const maxMessageLength = 4096

// secretTokenHeader carries the webhook secret_token on every delivery
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxVoiceBytes caps voice downloads; inline recognition accepts about a minute of audio
const maxVoiceBytes = 10 << 20

// Telegram adapts the Bot API to Messenger and turns updates into events
type Telegram struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
}

// NewTelegram authenticates with the bot token
func NewTelegram(token string, debug bool) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	api.Debug = debug

	log.Printf("Authorized on Telegram as @%s", api.Self.UserName)
	return &Telegram{
		api:        api,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Send splits long text into several messages and returns the id of the last
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) (int, error) {
	var lastID int
	for _, chunk := range splitMessage(text, maxMessageLength) {
		sent, err := t.api.Send(tgbotapi.NewMessage(chatID, chunk))
		if err != nil {
			return 0, apperr.Transport("send message", err)
		}
		lastID = sent.MessageID
	}
	return lastID, nil
}

// SendChoices sends text with an inline keyboard
func (t *Telegram) SendChoices(ctx context.Context, chatID int64, text string, rows [][]Choice) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLength))
	if keyboard, ok := inlineKeyboard(rows); ok {
		msg.ReplyMarkup = keyboard
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, apperr.Transport("send choices", err)
	}
	return sent.MessageID, nil
}

// Edit replaces a message's text and removes its keyboard
func (t *Telegram) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if _, err := t.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, truncate(text, maxMessageLength))); err != nil {
		return apperr.Transport("edit message", err)
	}
	return nil
}

// AckAction answers a callback query so the client stops its spinner
func (t *Telegram) AckAction(ctx context.Context, actionID, text string) error {
	if actionID == "" {
		return nil
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(actionID, text)); err != nil {
		return apperr.Transport("answer callback", err)
	}
	return nil
}

// FetchFile downloads a file by its Telegram file id
func (t *Telegram) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, apperr.Transport("get file url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, apperr.Transport("download file", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Transport("download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transport("download file", fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes+1))
	if err != nil {
		return nil, apperr.Transport("download file", err)
	}
	if len(data) > maxVoiceBytes {
		return nil, apperr.Transport("download file", fmt.Errorf("file larger than %d bytes", maxVoiceBytes))
	}
	return data, nil
}

// RegisterCommands publishes the command menu
func (t *Telegram) RegisterCommands() error {
	var commands []tgbotapi.BotCommand
	for _, c := range Commands {
		commands = append(commands, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}

	if _, err := t.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

// SetWebhook points Telegram at publicURL + path. Telegram echoes secret
// back in a header on every delivery so WebhookHandler can reject forgeries.
func (t *Telegram) SetWebhook(publicURL, path, secret string) error {
	link := strings.TrimRight(publicURL, "/") + "/" + strings.TrimLeft(path, "/")
	if _, err := url.ParseRequestURI(link); err != nil {
		return fmt.Errorf("failed to build webhook url: %w", err)
	}
	if secret == "" {
		return fmt.Errorf("webhook secret is required")
	}

	// WebhookConfig in this library version has no secret_token field
	params := tgbotapi.Params{"url": link, "secret_token": secret}
	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	log.Printf("Telegram webhook set to %s", link)
	return nil
}

// Poll receives updates by long polling until ctx is done. Any webhook is
// removed first since Telegram refuses getUpdates while one is set.
func (t *Telegram) Poll(ctx context.Context, d *Dispatcher) error {
	if _, err := t.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	log.Printf("Polling Telegram for updates")
	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := ToEvent(update); ok {
				d.Dispatch(ctx, ev)
			}
		}
	}
}

// WebhookHandler decodes webhook deliveries and dispatches them. Requests
// without the secret registered by SetWebhook get 401. Telegram gets its 200
// immediately; the flow runs in the background.
func (t *Telegram) WebhookHandler(ctx context.Context, d *Dispatcher, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(secretTokenHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.Printf("Rejected webhook delivery from %s: bad secret token", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		update, err := t.api.HandleUpdate(r)
		if err != nil {
			log.Printf("Failed to decode webhook update: %v", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		if ev, ok := ToEvent(*update); ok {
			d.Dispatch(ctx, ev)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ToEvent converts an update; false for updates the bot does not handle
func ToEvent(update tgbotapi.Update) (Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		ev := Event{Kind: EventAction, ActionID: cq.ID, Data: cq.Data}
		if cq.From != nil {
			ev.RequesterID = cq.From.ID
			ev.Name = displayName(cq.From)
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, ev.RequesterID != 0
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Event{}, false
	}

	ev := Event{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.MessageID,
		RequesterID: msg.Chat.ID,
	}
	if msg.From != nil {
		ev.RequesterID = msg.From.ID
		ev.Name = displayName(msg.From)
	}

	switch {
	case msg.IsCommand():
		ev.Kind = EventCommand
		ev.Command = strings.ToLower(msg.Command())
		ev.Args = strings.TrimSpace(msg.CommandArguments())
	case msg.Voice != nil:
		ev.Kind = EventVoice
		ev.FileID = msg.Voice.FileID
	case strings.TrimSpace(msg.Text) != "":
		ev.Kind = EventText
		ev.Text = msg.Text
	default:
		return Event{}, false
	}
	return ev, true
}

func displayName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.UserName
}

func inlineKeyboard(rows [][]Choice) (tgbotapi.InlineKeyboardMarkup, bool) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
	}
	if len(keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...), true
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// line breaks
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
