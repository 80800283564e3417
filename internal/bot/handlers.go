package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedChat(chatID) {
		b.log.Warn().Int64("chat_id", chatID).Msg("Message from unknown chat")
		b.SendMessage(chatID, "⛔ Доступ запрещён")
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	b.SendMessage(chatID, "Чтобы добавить событие, используй /add. Список команд: /help")
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedChat(chatID) {
		b.answer(callback.ID, "⛔ Доступ запрещён")
		return
	}

	kind, arg, _ := strings.Cut(callback.Data, ":")

	switch kind {
	case "nav":
		// nav:YYYY-MM
		m, err := calendar.ParseMonth(arg, b.loc())
		if err != nil {
			b.answer(callback.ID, "")
			return
		}
		sess := b.sessions.get(chatID, b.today())
		sess.month = m
		b.sessions.set(chatID, sess)
		b.answer(callback.ID, "")
		b.refreshView(chatID, msgID, sess)

	case "day":
		// day:YYYY-MM-DD
		d, err := domain.ParseDate(arg, b.loc())
		if err != nil {
			b.answer(callback.ID, "")
			return
		}
		b.answer(callback.ID, "")
		b.refreshView(chatID, msgID, b.sessions.selectDay(chatID, d))

	case "today":
		b.answer(callback.ID, "")
		b.refreshView(chatID, msgID, b.sessions.selectDay(chatID, b.today()))

	case "del":
		// del:<event id>
		e, err := b.store.Get(arg)
		if err == nil {
			err = b.store.Delete(arg)
		}
		if err != nil {
			b.answer(callback.ID, "Событие уже удалено")
		} else {
			b.log.Info().Str("id", e.ID).Int64("chat_id", chatID).Msg("Event deleted from bot")
			b.answer(callback.ID, "🗑 Удалено: "+e.Name)
		}
		b.refreshView(chatID, msgID, b.sessions.get(chatID, b.today()))

	case "export":
		b.answer(callback.ID, "")
		if arg == "ics" {
			b.cmdExport(chatID, exportICS)
		} else {
			b.cmdExport(chatID, exportCSV)
		}

	default:
		b.answer(callback.ID, "")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug().Err(err).Msg("Failed to answer callback")
	}
}

// view renders the selected day's agenda above the month grid of sess.
func (b *Bot) view(sess session) (string, tgbotapi.InlineKeyboardMarkup) {
	month := calendar.BuildMonth(sess.month, &sess.selected, b.today())
	first := month.Weeks[0][0].Date
	last := month.Weeks[len(month.Weeks)-1][calendar.DaysPerWeek-1].Date

	counts := make(map[string]int)
	for _, e := range b.store.EventsInRange(first, last) {
		counts[e.Date.In(b.loc()).Format(domain.DateLayout)]++
	}

	events := b.store.EventsForDay(sess.selected)
	return formatDay(sess.selected, events), monthKeyboard(month, counts, events)
}

func (b *Bot) sendView(chatID int64, sess session) {
	text, kb := b.view(sess)
	if err := b.SendMessageWithKeyboard(chatID, text, kb); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send calendar")
	}
}

func (b *Bot) refreshView(chatID int64, msgID int, sess session) {
	text, kb := b.view(sess)
	if err := b.editMessage(chatID, msgID, text, kb); err != nil {
		// Telegram rejects edits that change nothing
		b.log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to edit calendar")
	}
}

// userError turns a store or parse error into a chat reply.
func (b *Bot) userError(err error) string {
	var overlap *domain.OverlapError
	switch {
	case errors.As(err, &overlap):
		return fmt.Sprintf("⚠️ Время пересекается с «%s» (%s). Событие не сохранено.",
			html.EscapeString(overlap.Conflict.Name), overlap.Conflict.TimeRange())
	case errors.Is(err, errUsage):
		return "Неверный формат команды. /help для примеров"
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return "❌ В выбранном дне нет события с таким номером"
	case errors.Is(err, domain.ErrEventNotFound):
		return "❌ Событие не найдено"
	case errors.Is(err, domain.ErrInvalidEvent):
		return "❌ " + html.EscapeString(err.Error())
	default:
		b.log.Error().Err(err).Msg("Bot request failed")
		return "❌ Ошибка: " + html.EscapeString(err.Error())
	}
}

func (b *Bot) today() time.Time {
	return b.now().In(b.loc())
}

func (b *Bot) loc() *time.Location {
	if b.cfg.Timezone != nil {
		return b.cfg.Timezone
	}
	return time.Local
}
