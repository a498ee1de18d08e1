package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"fitcal/internal/dateutil"
	appLog "fitcal/internal/log"
)

//go:embed templates/calendar.html
var templatesFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templatesFS, "templates/calendar.html"))

// dayCell is one day of a week or month grid.
type dayCell struct {
	Date     int64  `json:"date"`
	Day      int    `json:"day"`
	Weekday  string `json:"weekday"`
	Label    string `json:"label"`
	InMonth  bool   `json:"in_month"`
	Today    bool   `json:"today"`
	Selected bool   `json:"selected"`

	WorkoutCount int `json:"workout_count"`
	PlannedCount int `json:"planned_count"`
}

// weekResponse is the JSON response shape for /api/calendar/week.
type weekResponse struct {
	Days []dayCell `json:"days"`
}

// monthResponse is the JSON response shape for /api/calendar/month.
type monthResponse struct {
	Title    string      `json:"title"`
	Weekdays [7]string   `json:"weekdays"`
	Weeks    [][]dayCell `json:"weeks"`
	Previous int64       `json:"previous"`
	Next     int64       `json:"next"`
}

// homeResponse is the JSON response shape for /api/home.
type homeResponse struct {
	Title     string       `json:"title"`
	DayLabel  string       `json:"day_label"`
	Day       int64        `json:"day"`
	Week      []dayCell    `json:"week"`
	Workouts  []workoutDTO `json:"workouts"`
	RestDay   bool         `json:"rest_day"`
	Planned   []sessionDTO `json:"planned"`
	InWorkout bool         `json:"in_workout"`
}

// handleHome returns everything the home screen shows for one day.
//
// GET /api/home?date=<ms>
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.today()

	selected, err := dateParam(r, "date", now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day := s.cal.TruncateDay(selected)

	workouts, err := s.store.GetWorkouts(ctx, day, s.cal)
	if err != nil {
		writeDomainError(w, "load home", err)
		return
	}

	week := s.cal.EnclosingWeek(day)
	cells, err := s.cells(ctx, week[:], day, day)
	if err != nil {
		writeDomainError(w, "load home", err)
		return
	}

	planned := make([]sessionDTO, 0)
	if res, err := s.plannedSessions(ctx, day, s.cal.AddDays(day, 1)); err != nil {
		appLog.Error("api home: planned sessions failed", err)
	} else {
		for _, p := range res.Sessions {
			planned = append(planned, s.toSessionDTO(p))
		}
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Title:     s.cal.LongDateDisplay(day, false),
		DayLabel:  s.cal.RelativeDateDisplay(day, now),
		Day:       int64(day),
		Week:      cells,
		Workouts:  s.toWorkoutDTOs(workouts),
		RestDay:   len(workouts) == 0,
		Planned:   planned,
		InWorkout: s.tracker.InWorkout(),
	})
}

// handleWeek returns the Sunday-first week enclosing date.
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	selected, err := dateParam(r, "date", s.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day := s.cal.TruncateDay(selected)

	week := s.cal.EnclosingWeek(day)
	cells, err := s.cells(r.Context(), week[:], day, day)
	if err != nil {
		writeDomainError(w, "load week", err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Days: cells})
}

// handleMonth returns the month grid enclosing date.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	selected, err := dateParam(r, "date", s.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.month(r.Context(), s.cal.TruncateDay(selected))
	if err != nil {
		writeDomainError(w, "load month", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) month(ctx context.Context, day dateutil.Instant) (monthResponse, error) {
	grid := s.cal.EnclosingMonth(day)

	days := make([]dateutil.Instant, 0, len(grid)*7)
	for _, week := range grid {
		days = append(days, week[:]...)
	}
	cells, err := s.cells(ctx, days, day, day)
	if err != nil {
		return monthResponse{}, err
	}

	weeks := make([][]dayCell, 0, len(grid))
	for i := range grid {
		weeks = append(weeks, cells[i*7:(i+1)*7])
	}

	return monthResponse{
		Title:    s.cal.Time(day).Format("January 2006"),
		Weekdays: dateutil.DaysOfWeek,
		Weeks:    weeks,
		Previous: int64(s.cal.MonthFirstDay(s.cal.PreviousMonth(day))),
		Next:     int64(s.cal.NextMonth(day)),
	}, nil
}

// cells decorates contiguous days with in-month, today and selection flags
// plus workout and planned session counts.
func (s *Server) cells(ctx context.Context, days []dateutil.Instant, monthRef, selected dateutil.Instant) ([]dayCell, error) {
	if len(days) == 0 {
		return []dayCell{}, nil
	}
	from := days[0]
	to := s.cal.AddDays(days[len(days)-1], 1)

	workoutCounts, err := s.store.CountByDay(ctx, from, to, s.cal)
	if err != nil {
		return nil, err
	}
	plannedCounts := s.plannedCounts(ctx, from, to)
	now := s.today()

	out := make([]dayCell, 0, len(days))
	for _, d := range days {
		t := s.cal.Time(d)
		// Grid days keep the time of day of the month's first day, which is
		// not midnight when DST skips it. Counts are keyed by day start.
		key := s.cal.TruncateDay(d)
		out = append(out, dayCell{
			Date:         int64(d),
			Day:          t.Day(),
			Weekday:      dateutil.DaysOfWeek[t.Weekday()],
			Label:        s.cal.RouletteDateDisplay(d),
			InMonth:      s.cal.InMonth(d, monthRef),
			Today:        s.cal.SameDay(d, now),
			Selected:     s.cal.SameDay(d, selected),
			WorkoutCount: workoutCounts[key],
			PlannedCount: plannedCounts[key],
		})
	}
	return out, nil
}

// handleCalendarPage renders the month as a static HTML page. The headless
// capture waits for data-ready="true" on the body.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	selected, err := dateParam(r, "date", s.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.month(r.Context(), s.cal.TruncateDay(selected))
	if err != nil {
		appLog.Error("calendar page failed", err)
		http.Error(w, "failed to load calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calendarTmpl.Execute(w, resp); err != nil {
		appLog.Error("calendar template failed", err)
	}
}
