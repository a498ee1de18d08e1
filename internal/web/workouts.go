package web

import (
	"encoding/json"
	"math"
	"net/http"

	"fitcal/internal/dateutil"
	"fitcal/internal/ics"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
)

// maxWorkoutBody bounds POST/PUT bodies.
const maxWorkoutBody = 1 << 20

// workoutDTO is a workout plus its display strings.
type workoutDTO struct {
	model.Workout
	Time          string  `json:"time"`
	Date          string  `json:"date"`
	Duration      string  `json:"duration,omitempty"`
	Volume        float64 `json:"volume"`
	CompletedSets int     `json:"completed_sets"`
	InProgress    bool    `json:"in_progress"`
}

func (s *Server) toWorkoutDTO(w model.Workout) workoutDTO {
	return workoutDTO{
		Workout:       w,
		Time:          s.cal.TimeDisplay(w.StartedAt),
		Date:          s.cal.RelativeDateDisplay(w.StartedAt, s.today()),
		Duration:      dateutil.TimePeriodDisplay(w.Duration()),
		Volume:        w.Volume(),
		CompletedSets: w.CompletedSets(),
		InProgress:    w.InProgress(),
	}
}

func (s *Server) toWorkoutDTOs(ws []model.Workout) []workoutDTO {
	out := make([]workoutDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, s.toWorkoutDTO(w))
	}
	return out
}

// handleListWorkouts returns the workouts of one day.
//
// GET /api/workouts?date=<ms>
func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	day, err := dateParam(r, "date", s.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	workouts, err := s.store.GetWorkouts(r.Context(), day, s.cal)
	if err != nil {
		writeDomainError(w, "list workouts", err)
		return
	}
	writeJSON(w, http.StatusOK, s.toWorkoutDTOs(workouts))
}

func (s *Server) handleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	var in model.Workout
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created := in.ID == ""

	saved, err := s.store.SaveWorkout(r.Context(), in)
	if err != nil {
		writeDomainError(w, "save workout", err)
		return
	}
	appLog.Info("workout saved", "id", saved.ID, "created", created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.toWorkoutDTO(saved))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	wk, err := s.store.GetWorkout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "get workout", err)
		return
	}
	writeJSON(w, http.StatusOK, s.toWorkoutDTO(wk))
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteWorkout(r.Context(), id); err != nil {
		writeDomainError(w, "delete workout", err)
		return
	}
	appLog.Info("workout deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleRepeatWorkout starts a fresh live workout from a logged one. Only
// one workout can be live at a time.
func (s *Server) handleRepeatWorkout(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.GetWorkout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "repeat workout", err)
		return
	}

	live := model.RepeatWorkout(src, s.today())
	if err := s.tracker.Start(live); err != nil {
		writeDomainError(w, "repeat workout", err)
		return
	}
	appLog.Info("workout repeated", "from", src.ID, "id", live.ID)
	writeJSON(w, http.StatusCreated, s.toWorkoutDTO(live))
}

// sessionResponse is the JSON response shape for /api/session.
type sessionResponse struct {
	InWorkout bool        `json:"in_workout"`
	Workout   *workoutDTO `json:"workout,omitempty"`
	// Elapsed is "1h 2m 3s" since the live workout started.
	Elapsed string `json:"elapsed,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	live, ok := s.tracker.Current()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	dto := s.toWorkoutDTO(live)
	writeJSON(w, http.StatusOK, sessionResponse{
		InWorkout: true,
		Workout:   &dto,
		Elapsed:   dateutil.TimePeriodDisplay(s.today() - live.StartedAt),
	})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var in model.Workout
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.tracker.Update(in); err != nil {
		writeDomainError(w, "update session", err)
		return
	}
	s.handleGetSession(w, r)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	saved, err := s.tracker.Finish(r.Context(), s.today())
	if err != nil {
		writeDomainError(w, "finish session", err)
		return
	}
	writeJSON(w, http.StatusOK, s.toWorkoutDTO(saved))
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, _ *http.Request) {
	s.tracker.Discard()
	w.WriteHeader(http.StatusNoContent)
}

// handleExport serves every finished workout as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.store.ListWorkouts(r.Context(), 0, dateutil.Instant(math.MaxInt64))
	if err != nil {
		writeDomainError(w, "export workouts", err)
		return
	}

	body := ics.ExportWorkouts(workouts, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="workouts.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWorkoutBody))
	return dec.Decode(v)
}
