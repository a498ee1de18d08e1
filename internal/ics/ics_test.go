package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "time/tzdata"

	"fitcal/internal/config"
	"fitcal/internal/dateutil"
	"fitcal/internal/model"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func juneWindow(loc *time.Location) ExpandConfig {
	return ExpandConfig{
		RangeStart: time.Date(2024, time.June, 1, 0, 0, 0, 0, loc),
		RangeEnd:   time.Date(2024, time.July, 1, 0, 0, 0, 0, loc),
	}
}

func TestPlanExpansion(t *testing.T) {
	loc := newYork(t)
	plans := []config.PlanConfig{{
		ID:              "upper",
		Name:            "Upper body",
		RRule:           "FREQ=WEEKLY;BYDAY=MO,TH",
		Start:           "2024-06-03T07:00",
		DurationMinutes: 45,
	}}

	res, err := ExpandSessions(PlanEvents(plans, loc), juneWindow(loc))
	require.NoError(t, err)
	require.Len(t, res.Sessions, 8)

	first := res.Sessions[0]
	assert.Equal(t, "plan:upper", first.SourceID)
	assert.Equal(t, "Upper body", first.Summary)
	assert.Equal(t, dateutil.FromTime(time.Date(2024, time.June, 3, 7, 0, 0, 0, loc)), first.Start)
	assert.Equal(t, 45*dateutil.Minute, first.End-first.Start)
	assert.Equal(t, dateutil.FromTime(time.Date(2024, time.June, 27, 7, 0, 0, 0, loc)), res.Sessions[7].Start)
	assert.Empty(t, res.TruncatedEvents)

	plans[0].ExDates = []string{"2024-06-10T07:00"}
	res, err = ExpandSessions(PlanEvents(plans, loc), juneWindow(loc))
	require.NoError(t, err)
	require.Len(t, res.Sessions, 7)
	for _, s := range res.Sessions {
		assert.NotEqual(t, 10, s.Start.In(loc).Day())
	}
}

func TestPlanEventsSkipsBrokenPlans(t *testing.T) {
	loc := newYork(t)
	plans := []config.PlanConfig{
		{ID: "bad-start", RRule: "FREQ=DAILY", Start: "tomorrow"},
		{ID: "bad-rule", RRule: "FREQ=SOMETIMES", Start: "2024-06-03T07:00"},
		{ID: "once", Start: "2024-06-03T18:30"},
	}

	events := PlanEvents(plans, loc)
	require.Len(t, events, 1)
	assert.Equal(t, "once", events[0].Summary)
	assert.Equal(t, time.Hour, events[0].End.Sub(events[0].Start))
}

func TestExpandCapsOccurrences(t *testing.T) {
	loc := newYork(t)
	plans := []config.PlanConfig{{ID: "daily", RRule: "FREQ=DAILY", Start: "2024-06-01T06:00"}}

	cfg := juneWindow(loc)
	cfg.MaxOccurrencesPerEvent = 5
	res, err := ExpandSessions(PlanEvents(plans, loc), cfg)
	require.NoError(t, err)
	assert.Len(t, res.Sessions, 5)
	assert.Equal(t, []string{"daily@plans.fitcal"}, res.TruncatedEvents)
}

func TestExpandRejectsInvertedWindow(t *testing.T) {
	loc := newYork(t)
	cfg := juneWindow(loc)
	cfg.RangeStart, cfg.RangeEnd = cfg.RangeEnd, cfg.RangeStart

	_, err := ExpandSessions(nil, cfg)
	assert.Error(t, err)
}

const classFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//gym//classes//EN
BEGIN:VEVENT
UID:spin@gym
DTSTART:20240604T220000Z
DTEND:20240604T230000Z
RRULE:FREQ=WEEKLY;COUNT=4
SUMMARY:Spin
LOCATION:Studio 2
END:VEVENT
BEGIN:VEVENT
UID:spin@gym
RECURRENCE-ID:20240611T220000Z
DTSTART:20240611T230000Z
DTEND:20240612T000000Z
SUMMARY:Spin (late)
LOCATION:Studio 2
END:VEVENT
BEGIN:VEVENT
UID:open-day@gym
DTSTART;VALUE=DATE:20240615
SUMMARY:Open day
END:VEVENT
BEGIN:VEVENT
DTSTART:20240601T100000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseAndExpandClassFeed(t *testing.T) {
	src := Source{ID: "gym", URL: "https://gym.example/classes.ics"}
	events, err := ParseICS(src, crlf(classFeed))
	require.NoError(t, err)
	require.Len(t, events, 3)

	var override, allDay *ParsedEvent
	for i := range events {
		switch {
		case events[i].IsOverride:
			override = &events[i]
		case events[i].AllDay:
			allDay = &events[i]
		}
	}
	require.NotNil(t, override)
	require.NotNil(t, allDay)
	assert.Equal(t, time.Date(2024, time.June, 11, 22, 0, 0, 0, time.UTC), override.Recurrence.UTC())
	assert.Equal(t, "Open day", allDay.Summary)

	cfg := ExpandConfig{
		RangeStart: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
	res, err := ExpandSessions(events, cfg)
	require.NoError(t, err)

	var spins []model.PlannedSession
	for _, s := range res.Sessions {
		assert.Equal(t, "gym", s.SourceID)
		if s.UID == "spin@gym" {
			spins = append(spins, s)
		}
	}
	require.Len(t, spins, 4)
	assert.Equal(t, "Spin", spins[0].Summary)
	assert.Equal(t, "Spin (late)", spins[1].Summary)
	assert.Equal(t, dateutil.FromTime(time.Date(2024, time.June, 11, 23, 0, 0, 0, time.UTC)), spins[1].Start)
	assert.Equal(t, "spin@gym@2024-06-11T23:00:00Z", spins[1].InstanceKey)
	assert.Equal(t, "Studio 2", spins[2].Location)
}

func TestParseRejectsEmptyBody(t *testing.T) {
	_, err := ParseICS(Source{ID: "gym"}, nil)
	assert.Error(t, err)
}

func TestFetchUsesValidatorsAndFallsBackToCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write(crlf(classFeed))
		case 2:
			assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
			w.WriteHeader(http.StatusNotModified)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "gym", URL: srv.URL + "/classes.ics?token=secret"}
	ctx := context.Background()

	res, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, crlf(classFeed), res.Body)

	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, crlf(classFeed), res.Body)

	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, crlf(classFeed), res.Body)
}

func TestFetchAllReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "missing", URL: srv.URL + "/missing.ics"},
		{ID: "blank"},
	})
	assert.Empty(t, results)
	assert.Len(t, errs, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://gym.example/...(redacted)", redactURL("https://gym.example/private/abc.ics?key=1"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

func TestExportWorkouts(t *testing.T) {
	start := dateutil.FromTime(time.Date(2024, time.June, 5, 7, 0, 0, 0, time.UTC))
	workouts := []model.Workout{
		{
			ID:        "w1",
			Name:      "Legs",
			Notes:     "felt strong",
			StartedAt: start,
			EndedAt:   start + dateutil.Hour,
			Exercises: []model.Exercise{{
				Name: "Squat",
				Sets: []model.Set{
					{Reps: 5, WeightKg: 100, Completed: true},
					{Reps: 5, WeightKg: 100, Completed: true},
					{Reps: 5, WeightKg: 100},
				},
			}},
		},
		{ID: "live", Name: "Arms", StartedAt: start + 2*dateutil.Hour},
	}

	out := ExportWorkouts(workouts, time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:w1@workouts.fitcal")
	assert.Contains(t, out, "SUMMARY:Legs")
	assert.Contains(t, out, "20240605T070000Z")
	assert.Contains(t, out, "20240605T080000Z")
	assert.NotContains(t, out, "live@workouts.fitcal")

	events, err := ParseICS(Source{ID: "export"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "w1@workouts.fitcal", events[0].UID)

	assert.Equal(t, "Squat 2x5 @ 100kg\nfelt strong", workoutDescription(workouts[0]))
}
