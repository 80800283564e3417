package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/export"
)

// APIResponse is the envelope of every JSON reply
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type EventResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Date        string `json:"date"`
	DisplayDate string `json:"displayDate"`
}

type CellResponse struct {
	Date           string `json:"date"`
	Day            int    `json:"day"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
	IsSelected     bool   `json:"isSelected"`
	IsToday        bool   `json:"isToday"`
	EventCount     int    `json:"eventCount"`
}

type MonthResponse struct {
	Month    string           `json:"month"`
	Title    string           `json:"title"`
	Prev     string           `json:"prev"`
	Next     string           `json:"next"`
	Weekdays []string         `json:"weekdays"`
	Weeks    [][]CellResponse `json:"weeks"`
	Selected *DayResponse     `json:"selected,omitempty"`
}

type DayResponse struct {
	Date   string          `json:"date"`
	Events []EventResponse `json:"events"`
}

// eventRequest is the body of create and update calls. Date may be omitted
// on day-position updates, where the path supplies it.
type eventRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	StartTime   string `json:"startTime" validate:"required,len=5"`
	EndTime     string `json:"endTime" validate:"required,len=5"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"required,oneof=work personal others"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// GET /api/month?month=YYYY-MM&selected=YYYY-MM-DD
func (s *Server) getMonth(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc())

	ref := now
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := calendar.ParseMonth(v, s.loc())
		if err != nil {
			s.jsonError(w, "Invalid month format (use YYYY-MM)", http.StatusBadRequest)
			return
		}
		ref = m
	}

	var selected *time.Time
	if v := r.URL.Query().Get("selected"); v != "" {
		d, err := domain.ParseDate(v, s.loc())
		if err != nil {
			s.jsonError(w, "Invalid selected date (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		selected = &d
	}

	if r.URL.Query().Get("month") == "" && selected != nil {
		ref = *selected
	}

	month := calendar.BuildMonth(ref, selected, now)
	first, last := month.Weeks[0][0].Date, month.Weeks[len(month.Weeks)-1][calendar.DaysPerWeek-1].Date

	counts := make(map[string]int)
	for _, e := range s.store.EventsInRange(first, last) {
		counts[e.Date.In(s.loc()).Format(domain.DateLayout)]++
	}

	resp := MonthResponse{
		Month:    month.Reference.Format(domain.MonthLayout),
		Title:    month.Title,
		Prev:     calendar.PrevMonth(month.Reference).Format(domain.MonthLayout),
		Next:     calendar.NextMonth(month.Reference).Format(domain.MonthLayout),
		Weekdays: calendar.WeekdayHeaders(),
	}
	for _, week := range month.Weeks {
		row := make([]CellResponse, 0, calendar.DaysPerWeek)
		for _, c := range week {
			key := c.Date.Format(domain.DateLayout)
			row = append(row, CellResponse{
				Date:           key,
				Day:            c.Date.Day(),
				IsCurrentMonth: c.IsCurrentMonth,
				IsSelected:     c.IsSelected,
				IsToday:        c.IsToday,
				EventCount:     counts[key],
			})
		}
		resp.Weeks = append(resp.Weeks, row)
	}
	if selected != nil {
		day := s.dayResponse(*selected)
		resp.Selected = &day
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// GET /api/events?date=YYYY-MM-DD - events of one day, or all events without date
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("date")
	if v == "" {
		s.jsonResponse(w, http.StatusOK, eventsToResponse(s.store.Events()))
		return
	}

	date, err := domain.ParseDate(v, s.loc())
	if err != nil {
		s.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.dayResponse(date))
}

// POST /api/events
func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := s.decodeEvent(w, r, nil)
	if !ok {
		return
	}

	created, err := s.store.Add(e)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.log.Info().Str("id", created.ID).Str("date", created.Date.Format(domain.DateLayout)).Msg("Event created")
	s.jsonResponse(w, http.StatusCreated, eventToResponse(created))
}

// GET /api/events/{id}
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, eventToResponse(e))
}

// PUT /api/events/{id}
func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	current, err := s.store.Get(id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	e, ok := s.decodeEvent(w, r, &current.Date)
	if !ok {
		return
	}

	updated, err := s.store.Update(id, e)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, eventToResponse(updated))
}

// DELETE /api/events/{id}
func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.Delete(id); err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// PUT /api/days/{date}/events/{index}
func (s *Server) updateDayEvent(w http.ResponseWriter, r *http.Request) {
	date, index, ok := s.dayPosition(w, r)
	if !ok {
		return
	}

	e, ok := s.decodeEvent(w, r, &date)
	if !ok {
		return
	}

	updated, err := s.store.UpdateForDay(date, index, e)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, eventToResponse(updated))
}

// DELETE /api/days/{date}/events/{index}
func (s *Server) deleteDayEvent(w http.ResponseWriter, r *http.Request) {
	date, index, ok := s.dayPosition(w, r)
	if !ok {
		return
	}

	removed, err := s.store.DeleteForDay(date, index)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, eventToResponse(removed))
}

// GET /api/export/csv?month=YYYY-MM
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	month, ok := s.exportMonth(w, r)
	if !ok {
		return
	}
	s.attachment(w, export.CSVFilename(month), "text/csv; charset=utf-8", export.CSV(s.store.Events()))
}

// GET /api/export/ics?month=YYYY-MM
func (s *Server) exportICS(w http.ResponseWriter, r *http.Request) {
	month, ok := s.exportMonth(w, r)
	if !ok {
		return
	}
	blob, err := export.ICS(s.store.Events(), s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to render ICS export")
		s.jsonError(w, "Failed to render calendar", http.StatusInternalServerError)
		return
	}
	s.attachment(w, export.ICSFilename(month), "text/calendar; charset=utf-8", blob)
}

func (s *Server) exportMonth(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return calendar.MonthStart(s.now().In(s.loc())), true
	}
	m, err := calendar.ParseMonth(v, s.loc())
	if err != nil {
		s.jsonError(w, "Invalid month format (use YYYY-MM)", http.StatusBadRequest)
		return time.Time{}, false
	}
	return m, true
}

// attachment archives the blob through the exporter and sends it as a download.
func (s *Server) attachment(w http.ResponseWriter, filename, contentType string, blob []byte) {
	if s.exporter != nil {
		if err := s.exporter.Export(filename, blob); err != nil {
			s.log.Error().Err(err).Str("file", filename).Msg("Failed to archive export")
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

func (s *Server) dayPosition(w http.ResponseWriter, r *http.Request) (time.Time, int, bool) {
	vars := mux.Vars(r)

	date, err := domain.ParseDate(vars["date"], s.loc())
	if err != nil {
		s.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return time.Time{}, 0, false
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.jsonError(w, "Invalid event index", http.StatusBadRequest)
		return time.Time{}, 0, false
	}
	return date, index, true
}

// decodeEvent reads and validates an event body. fallbackDate is used when
// the body carries no date; without it the date is required.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request, fallbackDate *time.Time) (domain.Event, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return domain.Event{}, false
	}
	if err := validate.Struct(req); err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return domain.Event{}, false
	}

	var date time.Time
	switch {
	case req.Date != "":
		d, err := domain.ParseDate(req.Date, s.loc())
		if err != nil {
			s.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
			return domain.Event{}, false
		}
		date = d
	case fallbackDate != nil:
		date = fallbackDate.In(s.loc())
	default:
		s.jsonError(w, "Date is required", http.StatusBadRequest)
		return domain.Event{}, false
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return domain.Event{}, false
	}

	e, err := domain.NewEvent(req.Name, req.StartTime, req.EndTime, req.Description, category, date)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return domain.Event{}, false
	}
	return e, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOverlap):
		s.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrIndexOutOfRange):
		s.jsonError(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("Event store failure")
		s.jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) dayResponse(date time.Time) DayResponse {
	return DayResponse{
		Date:   date.Format(domain.DateLayout),
		Events: eventsToResponse(s.store.EventsForDay(date)),
	}
}

func (s *Server) loc() *time.Location {
	if s.cfg.Timezone != nil {
		return s.cfg.Timezone
	}
	return time.Local
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

func eventsToResponse(events []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventToResponse(e))
	}
	return out
}

func eventToResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Description: e.Description,
		Category:    string(e.Category),
		Color:       e.Category.Color(),
		Date:        e.Date.Format(domain.DateLayout),
		DisplayDate: e.DisplayDate(),
	}
}
