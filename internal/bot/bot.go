package bot

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/export"
	"github.com/tazhate/familycal/internal/service"
)

// WebhookPath is where the API server mounts WebhookHandler
const WebhookPath = "/bot"

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	store    *service.EventStore
	exporter export.Exporter
	log      zerolog.Logger
	now      func() time.Time
	sessions *sessions
	updates  chan tgbotapi.Update
	secret   string // webhook secret_token
}

func New(cfg *config.Config, store *service.EventStore, exporter export.Exporter, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	bot := newWithAPI(api, cfg, store, exporter, log)

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func newWithAPI(api *tgbotapi.BotAPI, cfg *config.Config, store *service.EventStore, exporter export.Exporter, log zerolog.Logger) *Bot {
	secret := cfg.WebhookSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	return &Bot{
		api:      api,
		cfg:      cfg,
		store:    store,
		exporter: exporter,
		log:      log,
		now:      time.Now,
		sessions: newSessions(),
		updates:  make(chan tgbotapi.Update, api.Buffer),
		secret:   secret,
	}
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "month", Description: "🗓 Календарь на месяц"},
		{Command: "today", Description: "📅 События на сегодня"},
		{Command: "add", Description: "➕ Добавить событие"},
		{Command: "export", Description: "📤 Выгрузить в CSV"},
		{Command: "ics", Description: "📆 Выгрузить в iCalendar"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		b.log.Warn().Err(err).Msg("Failed to set commands")
	}
}

// SetupWebhook registers WEBHOOK_URL + WebhookPath with Telegram.
func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + WebhookPath

	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	// WebhookConfig has no secret_token field, so the call is built by hand
	params := make(tgbotapi.Params)
	params["url"] = webhookURL
	params.AddNonEmpty("secret_token", b.secret)
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		b.log.Warn().Str("error", info.LastErrorMessage).Msg("Webhook last error")
	}

	b.log.Info().Str("url", webhookURL).Msg("Webhook set")
	return nil
}

// WebhookHandler receives updates pushed by Telegram in webhook mode.
// Requests without the registered secret token are rejected.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(b.secret)) != 1 {
			b.log.Warn().Str("remote", r.RemoteAddr).Msg("Webhook request with wrong secret token")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.log.Warn().Err(err).Msg("Bad webhook update")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.updates <- *update
		w.WriteHeader(http.StatusOK)
	})
}

// Start dispatches updates until ctx is cancelled. Updates come from the
// webhook when WEBHOOK_URL is set and from long polling otherwise.
func (b *Bot) Start(ctx context.Context) error {
	updates := tgbotapi.UpdatesChannel(b.updates)
	if b.cfg.WebhookURL == "" {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			b.log.Warn().Err(err).Msg("Failed to delete webhook")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
		b.log.Info().Msg("Bot started with long polling")
	} else {
		b.log.Info().Msg("Bot started with webhook")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMessage(chatID int64, msgID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) sendDocument(chatID int64, filename string, blob []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: blob})
	_, err := b.api.Send(doc)
	return err
}
