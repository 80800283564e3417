package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tazhate/familycal/internal/domain"
)

var weekdayShort = [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

var monthNames = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// Genitive forms for "19 октября"
var monthGenitive = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func monthTitle(t time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[t.Month()-1], t.Year())
}

func dayTitle(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d", weekdayShort[t.Weekday()], t.Day(), monthGenitive[t.Month()-1], t.Year())
}

// formatDay renders the numbered agenda of a day. Numbers match /edit and /del.
func formatDay(date time.Time, events []domain.Event) string {
	var sb strings.Builder
	sb.WriteString("<b>📅 " + dayTitle(date) + "</b>\n\n")

	if len(events) == 0 {
		sb.WriteString("Событий нет. Добавить: /add 09:00 10:00 work Название")
		return sb.String()
	}

	for i, e := range events {
		sb.WriteString(formatEvent(i+1, e))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatEvent(n int, e domain.Event) string {
	line := fmt.Sprintf("%d. %s <b>%s</b> %s", n, e.Category.Emoji(), e.TimeRange(), html.EscapeString(e.Name))
	if e.Description != "" {
		line += "\n    <i>" + html.EscapeString(e.Description) + "</i>"
	}
	return line
}
