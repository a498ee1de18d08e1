package session

import (
	"context"
	"errors"
	"sync"

	"fitcal/internal/dateutil"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
)

var (
	// ErrAlreadyInWorkout is returned by Start while another workout is live.
	ErrAlreadyInWorkout = errors.New("a workout is already in progress")
	// ErrNoWorkout is returned by Finish when nothing is live.
	ErrNoWorkout = errors.New("no workout in progress")
)

// Saver persists finished workouts.
type Saver interface {
	SaveWorkout(ctx context.Context, w model.Workout) (model.Workout, error)
}

// Tracker holds the single in-progress workout.
type Tracker struct {
	saver Saver

	mu      sync.Mutex
	current *model.Workout
}

// NewTracker returns an idle Tracker that persists finished workouts with saver.
func NewTracker(saver Saver) *Tracker {
	return &Tracker{saver: saver}
}

// Start makes w the live workout.
func (t *Tracker) Start(w model.Workout) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return ErrAlreadyInWorkout
	}
	t.current = &w
	appLog.Info("workout started", "id", w.ID, "name", w.Name)
	return nil
}

// InWorkout reports whether a workout is live.
func (t *Tracker) InWorkout() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// Current returns the live workout, if any.
func (t *Tracker) Current() (model.Workout, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return model.Workout{}, false
	}
	return *t.current, true
}

// Update replaces the live workout's contents, keeping its ID and start.
func (t *Tracker) Update(w model.Workout) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return ErrNoWorkout
	}
	w.ID = t.current.ID
	w.StartedAt = t.current.StartedAt
	w.EndedAt = 0
	t.current = &w
	return nil
}

// Finish stamps the live workout with now, saves it and clears it. On a
// save error the workout stays live so the caller can retry.
func (t *Tracker) Finish(ctx context.Context, now dateutil.Instant) (model.Workout, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return model.Workout{}, ErrNoWorkout
	}

	w := *t.current
	if now < w.StartedAt {
		now = w.StartedAt
	}
	w.EndedAt = now

	saved, err := t.saver.SaveWorkout(ctx, w)
	if err != nil {
		return model.Workout{}, err
	}
	t.current = nil

	appLog.Info("workout finished", "id", saved.ID, "duration", dateutil.TimePeriodDisplay(saved.Duration()))
	return saved, nil
}

// Discard drops the live workout without saving.
func (t *Tracker) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		appLog.Info("workout discarded", "id", t.current.ID)
	}
	t.current = nil
}
