package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "time/tzdata"

	"fitcal/internal/config"
	"fitcal/internal/dateutil"
	"fitcal/internal/model"
	"fitcal/internal/session"
	"fitcal/internal/store"
)

type testEnv struct {
	srv     *Server
	handler http.Handler
	db      *store.DB
	tracker *session.Tracker
	loc     *time.Location
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "America/New_York"
	cfg.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	db, err := store.Open(filepath.Join(cfg.DataDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	loc, err := cfg.Location()
	require.NoError(t, err)
	now := time.Date(2024, time.June, 5, 15, 0, 0, 0, loc)

	tracker := session.NewTracker(db)
	srv, err := NewServer(cfg, db, tracker, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	return &testEnv{srv: srv, handler: srv.Handler(), db: db, tracker: tracker, loc: loc}
}

func (e *testEnv) ms(year int, month time.Month, day, hour int) string {
	return strconv.FormatInt(int64(dateutil.FromTime(time.Date(year, month, day, hour, 0, 0, 0, e.loc))), 10)
}

func (e *testEnv) at(month time.Month, day, hour int) dateutil.Instant {
	return dateutil.FromTime(time.Date(2024, month, day, hour, 0, 0, 0, e.loc))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (e *testEnv) seedLegDay(t *testing.T) model.Workout {
	t.Helper()
	w, err := e.db.SaveWorkout(t.Context(), model.Workout{
		Name:      "Legs",
		StartedAt: e.at(time.June, 5, 7),
		EndedAt:   e.at(time.June, 5, 8),
		Exercises: []model.Exercise{{Name: "Squat", Sets: []model.Set{{Reps: 5, WeightKg: 100, Completed: true}}}},
	})
	require.NoError(t, err)
	return w
}

func TestHealthBypassesBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "coach", Password: "squat"}
	})

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/home", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "fitcal")

	req := httptest.NewRequest(http.MethodGet, "/api/home", nil)
	req.SetBasicAuth("coach", "squat")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedLegDay(t)

	rec := env.do(t, http.MethodGet, "/api/home?date="+env.ms(2024, time.June, 5, 13), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	home := decode[homeResponse](t, rec)

	assert.Equal(t, "June 5th", home.Title)
	assert.Equal(t, "Today", home.DayLabel)
	assert.Equal(t, int64(env.at(time.June, 5, 0)), home.Day)
	assert.False(t, home.RestDay)
	require.Len(t, home.Workouts, 1)
	assert.Equal(t, "07:00", home.Workouts[0].Time)
	assert.Equal(t, "1h", home.Workouts[0].Duration)

	require.Len(t, home.Week, 7)
	assert.Equal(t, int64(env.at(time.June, 2, 0)), home.Week[0].Date)
	assert.Equal(t, "Sun", home.Week[0].Weekday)
	assert.True(t, home.Week[3].Selected)
	assert.True(t, home.Week[3].Today)
	assert.Equal(t, 1, home.Week[3].WorkoutCount)
	assert.Equal(t, 0, home.Week[4].WorkoutCount)

	rec = env.do(t, http.MethodGet, "/api/home?date="+env.ms(2024, time.June, 4, 9), nil)
	home = decode[homeResponse](t, rec)
	assert.True(t, home.RestDay)
	assert.Equal(t, "Yesterday", home.DayLabel)
}

func TestBadDateIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/home?date=june", "/api/calendar/week?date=x", "/api/plans?from=soon"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestMonthGrid(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/calendar/month?date="+env.ms(2024, time.February, 14, 12), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	month := decode[monthResponse](t, rec)

	assert.Equal(t, "February 2024", month.Title)
	require.Len(t, month.Weeks, 5)
	first := month.Weeks[0][0]
	assert.Equal(t, 28, first.Day)
	assert.False(t, first.InMonth)
	assert.True(t, month.Weeks[0][4].InMonth)
	last := month.Weeks[4][6]
	assert.Equal(t, 2, last.Day)
	assert.False(t, last.InMonth)
	assert.Equal(t, int64(env.at(time.January, 1, 0)), month.Previous)
	assert.Equal(t, int64(env.at(time.March, 1, 0)), month.Next)
}

func TestMonthCountsWhenDSTSkipsMidnight(t *testing.T) {
	// Asuncion moved clocks from 00:00 to 01:00 on 2023-10-01.
	env := newTestEnv(t, func(c *config.Config) { c.Timezone = "America/Asuncion" })

	_, err := env.db.SaveWorkout(t.Context(), model.Workout{
		Name:      "Legs",
		StartedAt: dateutil.FromTime(time.Date(2023, time.October, 2, 10, 0, 0, 0, env.loc)),
		EndedAt:   dateutil.FromTime(time.Date(2023, time.October, 2, 11, 0, 0, 0, env.loc)),
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/calendar/month?date="+env.ms(2023, time.October, 15, 12), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	month := decode[monthResponse](t, rec)

	require.NotEmpty(t, month.Weeks)
	assert.Equal(t, 1, month.Weeks[0][0].Day)
	second := month.Weeks[0][1]
	assert.Equal(t, 2, second.Day)
	assert.Equal(t, 1, second.WorkoutCount)
}

func TestWeek(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/calendar/week?date="+env.ms(2024, time.June, 2, 0), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	week := decode[weekResponse](t, rec)

	require.Len(t, week.Days, 7)
	assert.Equal(t, 2, week.Days[0].Day)
	assert.True(t, week.Days[0].Selected)
	assert.Equal(t, 8, week.Days[6].Day)
	assert.Equal(t, "Sat Jun 8", week.Days[6].Label)
}

func TestWorkoutLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/workouts", model.Workout{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/workouts", model.Workout{
		Name:      "Push",
		StartedAt: env.at(time.June, 5, 18),
		EndedAt:   env.at(time.June, 5, 19),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[workoutDTO](t, rec)
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/api/workouts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Push", decode[workoutDTO](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/api/workouts?date="+env.ms(2024, time.June, 5, 0), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]workoutDTO](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/workouts/"+created.ID+"/repeat", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	live := decode[workoutDTO](t, rec)
	assert.NotEqual(t, created.ID, live.ID)
	assert.True(t, live.InProgress)

	rec = env.do(t, http.MethodPost, "/api/workouts/"+created.ID+"/repeat", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/workouts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/workouts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/workouts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	legs := env.seedLegDay(t)

	rec := env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[sessionResponse](t, rec).InWorkout)

	rec = env.do(t, http.MethodPost, "/api/session/finish", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/workouts/"+legs.ID+"/repeat", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/session", nil)
	sess := decode[sessionResponse](t, rec)
	require.True(t, sess.InWorkout)
	require.NotNil(t, sess.Workout)
	assert.Equal(t, "Legs", sess.Workout.Name)

	update := sess.Workout.Workout
	update.Notes = "went heavier"
	rec = env.do(t, http.MethodPut, "/api/session", update)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "went heavier", decode[sessionResponse](t, rec).Workout.Notes)

	rec = env.do(t, http.MethodPost, "/api/session/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	finished := decode[workoutDTO](t, rec)
	assert.False(t, finished.InProgress)
	assert.False(t, env.tracker.InWorkout())

	stored, err := env.db.GetWorkout(t.Context(), finished.ID)
	require.NoError(t, err)
	assert.Equal(t, "went heavier", stored.Notes)

	rec = env.do(t, http.MethodPost, "/api/workouts/"+legs.ID+"/repeat", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.tracker.InWorkout())
}

func withUpperBodyPlan(c *config.Config) {
	c.Plans = []config.PlanConfig{{
		ID:    "upper",
		Name:  "Upper body",
		RRule: "FREQ=WEEKLY;BYDAY=MO,TH",
		Start: "2024-06-03T07:00",
	}}
}

func TestPlans(t *testing.T) {
	env := newTestEnv(t, withUpperBodyPlan)

	rec := env.do(t, http.MethodGet, "/api/plans?from="+env.ms(2024, time.June, 2, 10)+"&days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plans := decode[plansResponse](t, rec)

	assert.Equal(t, "America/New_York", plans.Timezone)
	assert.Equal(t, int64(env.at(time.June, 2, 0)), plans.RangeStart)
	require.Len(t, plans.Sessions, 2)
	assert.Equal(t, "Upper body", plans.Sessions[0].Summary)
	assert.Equal(t, "07:00", plans.Sessions[0].Time)
	assert.Equal(t, int64(env.at(time.June, 6, 7)), plans.Sessions[1].Start)

	rec = env.do(t, http.MethodGet, "/api/calendar/week?date="+env.ms(2024, time.June, 5, 0), nil)
	week := decode[weekResponse](t, rec)
	assert.Equal(t, 1, week.Days[1].PlannedCount)
	assert.Equal(t, 1, week.Days[4].PlannedCount)
	assert.Equal(t, 0, week.Days[5].PlannedCount)

	rec = env.do(t, http.MethodGet, "/api/home?date="+env.ms(2024, time.June, 3, 12), nil)
	home := decode[homeResponse](t, rec)
	require.Len(t, home.Planned, 1)
	assert.True(t, home.RestDay)
}

func TestPlansRejectInvertedWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/plans?from="+env.ms(2024, time.June, 9, 0)+"&to="+env.ms(2024, time.June, 2, 0), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshReloadsEvents(t *testing.T) {
	env := newTestEnv(t, withUpperBodyPlan)
	assert.Equal(t, 1, env.srv.Refresh(t.Context()))
}

func TestExportFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	legs := env.seedLegDay(t)

	rec := env.do(t, http.MethodGet, "/workouts.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "UID:"+legs.ID+"@workouts.fitcal")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Legs")
}

func TestCalendarPage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedLegDay(t)

	rec := env.do(t, http.MethodGet, "/calendar?date="+env.ms(2024, time.June, 5, 0), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "June 2024")
	assert.Contains(t, body, "1 workout<")
}

func TestPreviewMissing(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/preview.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
