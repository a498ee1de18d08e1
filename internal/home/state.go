// Package home holds the state of the home screen: the selected day, its
// workouts, and the historical workout editor. Transitions are explicit:
// State.Apply takes an Event and returns the next State plus the Commands
// the caller must run. Nothing in this file performs I/O.
package home

import (
	"errors"

	"fitcal/internal/dateutil"
	"fitcal/internal/model"
	"fitcal/internal/session"
)

// AlreadyInWorkoutNotice is shown when repeating a workout while another one
// is live.
const AlreadyInWorkoutNotice = "Cannot start a workout as you are already in one"

// State is the home screen view state.
type State struct {
	cal dateutil.Calendar

	// Day is the selected calendar day, truncated.
	Day dateutil.Instant
	// Loading is true until the fetch for Day completes.
	Loading  bool
	Workouts []model.Workout
	// Editing is the workout open in the editor sheet, nil when closed.
	Editing *model.Workout
	// InWorkout mirrors whether a live workout exists.
	InWorkout bool
	// IndicatorVisible is the desired visibility of the live indicator.
	IndicatorVisible bool
	// Generation identifies the latest fetch; older results are dropped.
	Generation uint64

	Notice string
	Err    error
}

// NewState returns the initial state for now's day and the commands that
// load it.
func NewState(cal dateutil.Calendar, now dateutil.Instant) (State, []Command) {
	s := State{
		cal:              cal,
		Day:              cal.TruncateDay(now),
		Loading:          true,
		IndicatorVisible: true,
	}
	cmd := fetch(&s)
	return s, []Command{cmd}
}

// Calendar returns the time reference the state truncates days with.
func (s State) Calendar() dateutil.Calendar {
	return s.cal
}

// Title is the header shown above the calendar, e.g. "June 5th".
func (s State) Title() string {
	return s.cal.LongDateDisplay(s.Day, false)
}

// RestDay reports a loaded day without workouts.
func (s State) RestDay() bool {
	return !s.Loading && s.Err == nil && len(s.Workouts) == 0
}

// EditorOpen reports whether the editor sheet is shown.
func (s State) EditorOpen() bool {
	return s.Editing != nil
}

// fetch bumps the generation on s and returns the matching fetch command.
func fetch(s *State) Command {
	s.Generation++
	return FetchWorkouts{Day: s.Day, Generation: s.Generation}
}

// Apply returns the state after ev and the commands it requires.
func (s State) Apply(ev Event) (State, []Command) {
	next := s

	switch ev := ev.(type) {
	case SelectDay:
		next.Day = s.cal.TruncateDay(ev.Day)
		next.Loading = true
		next.Notice = ""
		next.Err = nil
		cmd := fetch(&next)
		return next, []Command{cmd, Haptic{}}

	case Refresh:
		cmd := fetch(&next)
		return next, []Command{cmd}

	case WorkoutsLoaded:
		if ev.Generation != s.Generation {
			return s, nil
		}
		next.Loading = false
		if ev.Err != nil {
			next.Err = ev.Err
			return next, nil
		}
		next.Err = nil
		next.Workouts = ev.Workouts
		return next, nil

	case OpenEditor:
		w := ev.Workout
		next.Editing = &w
		next.Notice = ""
		next.IndicatorVisible = false
		return next, []Command{HideLiveIndicator{}}

	case CloseEditor:
		if s.Editing == nil {
			return s, nil
		}
		next.Editing = nil
		next.IndicatorVisible = true
		cmd := fetch(&next)
		return next, []Command{ShowLiveIndicator{}, cmd}

	case SaveWorkout:
		return next, []Command{PersistWorkout{Workout: ev.Workout}}

	case WorkoutSaved:
		if s.Editing != nil && s.Editing.ID == ev.Workout.ID {
			w := ev.Workout
			next.Editing = &w
		}
		next.Workouts = replaceWorkout(s.Workouts, ev.Workout)
		return next, nil

	case RepeatWorkout:
		if s.InWorkout {
			next.Notice = AlreadyInWorkoutNotice
			return next, nil
		}
		next.Editing = nil
		next.IndicatorVisible = true
		return next, []Command{
			StartWorkout{Workout: model.RepeatWorkout(ev.Workout, ev.Now)},
			ShowLiveIndicator{},
		}

	case WorkoutStarted:
		next.InWorkout = true
		return next, nil

	case SessionChanged:
		next.InWorkout = ev.Active
		return next, nil

	case TrashWorkout:
		if s.Editing == nil {
			return s, nil
		}
		return next, []Command{RemoveWorkout{ID: s.Editing.ID}}

	case WorkoutDeleted:
		cmds := make([]Command, 0, 2)
		if s.Editing != nil && s.Editing.ID == ev.ID {
			next.Editing = nil
			next.IndicatorVisible = true
			cmds = append(cmds, ShowLiveIndicator{})
		}
		cmds = append(cmds, fetch(&next))
		return next, cmds

	case OperationFailed:
		// The live workout may have been started elsewhere.
		if ev.Op == "start" && errors.Is(ev.Err, session.ErrAlreadyInWorkout) {
			next.InWorkout = true
			next.Notice = AlreadyInWorkoutNotice
			return next, nil
		}
		next.Err = ev.Err
		return next, nil
	}

	return s, nil
}

// replaceWorkout returns a copy of list with w swapped in by ID.
func replaceWorkout(list []model.Workout, w model.Workout) []model.Workout {
	out := make([]model.Workout, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == w.ID {
			out[i] = w
		}
	}
	return out
}
