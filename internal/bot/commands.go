package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/export"
)

var errUsage = errors.New("wrong command format")

// Russian category names accepted next to the canonical ones
var categoryAliases = map[string]domain.Category{
	"работа": domain.CategoryWork,
	"личное": domain.CategoryPersonal,
	"другое": domain.CategoryOthers,
}

// eventArgs is a parsed "[YYYY-MM-DD] HH:MM HH:MM <category> <name> [| description]".
type eventArgs struct {
	date        *time.Time
	start       string
	end         string
	category    domain.Category
	name        string
	description string
}

func parseEventArgs(args string, loc *time.Location) (eventArgs, error) {
	var a eventArgs

	main, desc, _ := strings.Cut(args, "|")
	a.description = strings.TrimSpace(desc)

	fields := strings.Fields(main)
	if len(fields) > 0 {
		if d, err := domain.ParseDate(fields[0], loc); err == nil {
			a.date = &d
			fields = fields[1:]
		}
	}
	if len(fields) < 4 {
		return eventArgs{}, errUsage
	}

	category, err := parseCategory(fields[2])
	if err != nil {
		return eventArgs{}, err
	}

	a.start = fields[0]
	a.end = fields[1]
	a.category = category
	a.name = strings.Join(fields[3:], " ")
	return a, nil
}

func parseCategory(s string) (domain.Category, error) {
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c, nil
	}
	return domain.ParseCategory(s)
}

// parseIndex reads the leading 1-based event number and returns it 0-based
// together with the remaining arguments.
func parseIndex(args string) (int, string, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	n, err := strconv.Atoi(head)
	if err != nil || n < 1 {
		return 0, "", errUsage
	}
	return n - 1, strings.TrimSpace(rest), nil
}

func (a eventArgs) event(fallback time.Time) (domain.Event, error) {
	date := fallback
	if a.date != nil {
		date = *a.date
	}
	return domain.NewEvent(a.name, a.start, a.end, a.description, a.category, date)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.cmdStart(chatID)
	case "help":
		b.cmdHelp(chatID)
	case "month":
		b.cmdMonth(chatID, args)
	case "today":
		b.cmdToday(chatID)
	case "add":
		b.cmdAdd(chatID, args)
	case "edit":
		b.cmdEdit(chatID, args)
	case "del":
		b.cmdDel(chatID, args)
	case "export":
		b.cmdExport(chatID, exportCSV)
	case "ics":
		b.cmdExport(chatID, exportICS)
	default:
		b.SendMessage(chatID, "Неизвестная команда. /help для списка команд")
	}
}

func (b *Bot) cmdStart(chatID int64) {
	b.SendMessage(chatID, "👋 Привет! Это семейный календарь.\n\nВыбери день в сетке ниже или добавь событие командой /add.\n/help — список команд")
	b.sendView(chatID, b.sessions.get(chatID, b.today()))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Команды:</b>

<b>Календарь</b>
/month — сетка месяца
/month 2026-11 — открыть месяц
/today — события на сегодня

<b>События выбранного дня</b>
/add 09:00 10:00 work Созвон
/add 2026-11-02 15:00 16:00 personal Стоматолог | взять полис
/edit 1 09:30 10:30 work Созвон — изменить событие №1
/del 1 — удалить событие №1

Категории: work (работа), personal (личное), others (другое)

<b>Выгрузка</b>
/export — CSV файл
/ics — iCalendar файл`
	b.SendMessage(chatID, text)
}

func (b *Bot) cmdMonth(chatID int64, args string) {
	sess := b.sessions.get(chatID, b.today())
	if args != "" {
		m, err := calendar.ParseMonth(args, b.loc())
		if err != nil {
			b.SendMessage(chatID, "Формат: /month ГГГГ-ММ, например /month 2026-11")
			return
		}
		sess.month = m
		b.sessions.set(chatID, sess)
	}
	b.sendView(chatID, sess)
}

func (b *Bot) cmdToday(chatID int64) {
	b.sendView(chatID, b.sessions.selectDay(chatID, b.today()))
}

func (b *Bot) cmdAdd(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Формат: /add [ГГГГ-ММ-ДД] ЧЧ:ММ ЧЧ:ММ категория название [| описание]")
		return
	}

	a, err := parseEventArgs(args, b.loc())
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	sess := b.sessions.get(chatID, b.today())
	e, err := a.event(sess.selected)
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	created, err := b.store.Add(e)
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	b.log.Info().Str("id", created.ID).Int64("chat_id", chatID).Msg("Event added from bot")
	b.SendMessage(chatID, "✅ Событие добавлено")
	b.sendView(chatID, b.sessions.selectDay(chatID, created.Date))
}

func (b *Bot) cmdEdit(chatID int64, args string) {
	index, rest, err := parseIndex(args)
	if err != nil {
		b.SendMessage(chatID, "Формат: /edit N ЧЧ:ММ ЧЧ:ММ категория название [| описание]")
		return
	}

	a, err := parseEventArgs(rest, b.loc())
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	sess := b.sessions.get(chatID, b.today())
	e, err := a.event(sess.selected)
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	updated, err := b.store.UpdateForDay(sess.selected, index, e)
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	b.SendMessage(chatID, "✏️ Событие изменено")
	b.sendView(chatID, b.sessions.selectDay(chatID, updated.Date))
}

func (b *Bot) cmdDel(chatID int64, args string) {
	index, _, err := parseIndex(args)
	if err != nil {
		b.SendMessage(chatID, "Формат: /del N, где N — номер события в выбранном дне")
		return
	}

	sess := b.sessions.get(chatID, b.today())
	removed, err := b.store.DeleteForDay(sess.selected, index)
	if err != nil {
		b.SendMessage(chatID, b.userError(err))
		return
	}

	b.SendMessage(chatID, fmt.Sprintf("🗑 Удалено: %s", formatEvent(index+1, removed)))
	b.sendView(chatID, sess)
}

type exportKind int

const (
	exportCSV exportKind = iota
	exportICS
)

// cmdExport sends every stored event as a document named after the displayed month.
func (b *Bot) cmdExport(chatID int64, kind exportKind) {
	sess := b.sessions.get(chatID, b.today())
	events := b.store.Events()
	if len(events) == 0 {
		b.SendMessage(chatID, "Нечего выгружать: событий нет")
		return
	}

	var (
		filename string
		blob     []byte
	)
	switch kind {
	case exportICS:
		data, err := export.ICS(events, b.now())
		if err != nil {
			b.log.Error().Err(err).Msg("Failed to render ICS export")
			b.SendMessage(chatID, "❌ Не удалось сформировать файл")
			return
		}
		filename, blob = export.ICSFilename(sess.month), data
	default:
		filename, blob = export.CSVFilename(sess.month), export.CSV(events)
	}

	if b.exporter != nil {
		if err := b.exporter.Export(filename, blob); err != nil {
			b.log.Error().Err(err).Str("file", filename).Msg("Failed to archive export")
		}
	}

	if err := b.sendDocument(chatID, filename, blob); err != nil {
		b.log.Error().Err(err).Str("file", filename).Msg("Failed to send export")
		b.SendMessage(chatID, "❌ Не удалось отправить файл")
	}
}
