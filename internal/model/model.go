package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fitcal/internal/dateutil"
)

// ErrInvalidWorkout is wrapped by Validate failures.
var ErrInvalidWorkout = errors.New("invalid workout")

// Set is a single set of an exercise.
type Set struct {
	Reps      int     `json:"reps"`
	WeightKg  float64 `json:"weight_kg"`
	Completed bool    `json:"completed"`
}

// Exercise groups the sets performed for one movement.
type Exercise struct {
	Name        string `json:"name"`
	RestSeconds int    `json:"rest_seconds"`
	Sets        []Set  `json:"sets"`
}

// Workout is a logged (or in-progress) training session.
type Workout struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Notes     string           `json:"notes,omitempty"`
	StartedAt dateutil.Instant `json:"started_at"`
	// EndedAt is zero while the workout is still in progress.
	EndedAt   dateutil.Instant `json:"ended_at"`
	Exercises []Exercise       `json:"exercises"`
}

// NewID returns a fresh workout identifier.
func NewID() string {
	return uuid.NewString()
}

// InProgress reports whether the workout has not been finished yet.
func (w Workout) InProgress() bool {
	return w.EndedAt == 0
}

// Duration is EndedAt-StartedAt, or zero while in progress.
func (w Workout) Duration() dateutil.Instant {
	if w.InProgress() {
		return 0
	}
	return w.EndedAt - w.StartedAt
}

// Volume is the total reps x weight across completed sets.
func (w Workout) Volume() float64 {
	var total float64
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			if s.Completed {
				total += float64(s.Reps) * s.WeightKg
			}
		}
	}
	return total
}

// CompletedSets counts completed sets across all exercises.
func (w Workout) CompletedSets() int {
	n := 0
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			if s.Completed {
				n++
			}
		}
	}
	return n
}

// Validate reports why w cannot be stored, wrapping ErrInvalidWorkout.
func (w Workout) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWorkout)
	}
	if w.StartedAt <= 0 {
		return fmt.Errorf("%w: started_at is required", ErrInvalidWorkout)
	}
	if w.EndedAt != 0 && w.EndedAt < w.StartedAt {
		return fmt.Errorf("%w: ended_at is before started_at", ErrInvalidWorkout)
	}
	for i, ex := range w.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("%w: exercise %d has no name", ErrInvalidWorkout, i)
		}
		for j, s := range ex.Sets {
			if s.Reps < 0 || s.WeightKg < 0 {
				return fmt.Errorf("%w: exercise %q set %d is negative", ErrInvalidWorkout, ex.Name, j)
			}
		}
	}
	return nil
}

// RepeatWorkout builds a new in-progress workout from w: same name, notes
// and exercise plan, every set reset to not completed, started at now.
func RepeatWorkout(w Workout, now dateutil.Instant) Workout {
	out := Workout{
		ID:        NewID(),
		Name:      w.Name,
		Notes:     w.Notes,
		StartedAt: now,
		Exercises: make([]Exercise, len(w.Exercises)),
	}
	for i, ex := range w.Exercises {
		sets := make([]Set, len(ex.Sets))
		for j, s := range ex.Sets {
			sets[j] = Set{Reps: s.Reps, WeightKg: s.WeightKg}
		}
		out.Exercises[i] = Exercise{Name: ex.Name, RestSeconds: ex.RestSeconds, Sets: sets}
	}
	return out
}

// PlannedSession is a single concrete occurrence of a training plan or a
// subscribed class schedule, after recurrence expansion.
type PlannedSession struct {
	SourceID string `json:"source_id"`
	UID      string `json:"uid"`

	// InstanceKey uniquely identifies one occurrence of a recurring event.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	Start dateutil.Instant `json:"start"`
	End   dateutil.Instant `json:"end"`
}
