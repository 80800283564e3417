package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/familycal/internal/domain"
)

const productID = "-//FamilyCal//Calendar Export//EN"

// ICS renders the events as an iCalendar document with one VEVENT each.
// Times are written in UTC; stamp is used for DTSTAMP.
func ICS(events []domain.Event, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range events {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, uid(e))
		vevent.Props.SetText(ical.PropSummary, e.Name)
		if e.Description != "" {
			vevent.Props.SetText(ical.PropDescription, e.Description)
		}
		vevent.Props.SetText(ical.PropCategories, string(e.Category))
		vevent.Props.SetDateTime(ical.PropDateTimeStart, e.Start().UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.End().UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// ICSFilename suggests a download name such as "events-October-2026.ics".
func ICSFilename(month time.Time) string {
	return "events-" + month.Format("January-2006") + ".ics"
}

func uid(e domain.Event) string {
	if e.ID != "" {
		return e.ID + "@familycal"
	}
	return fmt.Sprintf("%s-%s-%s@familycal", e.Date.Format("20060102"), e.StartTime, e.Name)
}
