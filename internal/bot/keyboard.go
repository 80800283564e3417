package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

const noopData = "noop"

// Month grid keyboard: navigation, weekday header, one row per week, actions.
// Days carrying events are marked with a dot; the selected day is bracketed.
func monthKeyboard(month calendar.Month, counts map[string]int, dayEvents []domain.Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	prev := calendar.PrevMonth(month.Reference).Format(domain.MonthLayout)
	next := calendar.NextMonth(month.Reference).Format(domain.MonthLayout)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️", "nav:"+prev),
		tgbotapi.NewInlineKeyboardButtonData(monthTitle(month.Reference), noopData),
		tgbotapi.NewInlineKeyboardButtonData("▶️", "nav:"+next),
	))

	var header []tgbotapi.InlineKeyboardButton
	for _, name := range weekdayShort {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(name, noopData))
	}
	rows = append(rows, header)

	for _, week := range month.Weeks {
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range week {
			key := c.Date.Format(domain.DateLayout)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(cellLabel(c, counts[key]), "day:"+key))
		}
		rows = append(rows, row)
	}

	// Delete buttons for the selected day
	for i, e := range dayEvents {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 %d. %s %s", i+1, e.StartTime, truncate(e.Name, 25)),
				"del:"+e.ID,
			),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📅 Сегодня", "today"),
		tgbotapi.NewInlineKeyboardButtonData("📤 CSV", "export:csv"),
		tgbotapi.NewInlineKeyboardButtonData("📆 ICS", "export:ics"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cellLabel(c calendar.Cell, count int) string {
	label := strconv.Itoa(c.Date.Day())
	if !c.IsCurrentMonth {
		label = "·" + label + "·"
	}
	if c.IsToday {
		label = "•" + label
	}
	if count > 0 {
		label += "*"
	}
	if c.IsSelected {
		label = "[" + label + "]"
	}
	return label
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
