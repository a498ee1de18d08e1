package home

import (
	"fitcal/internal/dateutil"
	"fitcal/internal/model"
)

// Event is an input to State.Apply.
type Event interface {
	isEvent()
}

type (
	// SelectDay picks a day on the calendar.
	SelectDay struct{ Day dateutil.Instant }
	// Refresh reloads the selected day, e.g. when the screen regains focus.
	Refresh struct{}
	// WorkoutsLoaded carries the result of a FetchWorkouts command.
	WorkoutsLoaded struct {
		Generation uint64
		Workouts   []model.Workout
		Err        error
	}
	OpenEditor  struct{ Workout model.Workout }
	CloseEditor struct{}
	// SaveWorkout asks to persist an edit made in the editor.
	SaveWorkout  struct{ Workout model.Workout }
	WorkoutSaved struct{ Workout model.Workout }
	// RepeatWorkout starts a new live workout copied from Workout.
	RepeatWorkout struct {
		Workout model.Workout
		Now     dateutil.Instant
	}
	WorkoutStarted struct{ Workout model.Workout }
	// SessionChanged reports the live workout state from outside the screen.
	SessionChanged struct{ Active bool }
	// TrashWorkout deletes the workout open in the editor.
	TrashWorkout   struct{}
	WorkoutDeleted struct{ ID string }

	OperationFailed struct {
		Op  string
		Err error
	}
)

func (SelectDay) isEvent()       {}
func (Refresh) isEvent()         {}
func (WorkoutsLoaded) isEvent()  {}
func (OpenEditor) isEvent()      {}
func (CloseEditor) isEvent()     {}
func (SaveWorkout) isEvent()     {}
func (WorkoutSaved) isEvent()    {}
func (RepeatWorkout) isEvent()   {}
func (WorkoutStarted) isEvent()  {}
func (SessionChanged) isEvent()  {}
func (TrashWorkout) isEvent()    {}
func (WorkoutDeleted) isEvent()  {}
func (OperationFailed) isEvent() {}

// Command is a side effect requested by a transition.
type Command interface {
	isCommand()
}

type (
	FetchWorkouts struct {
		Day        dateutil.Instant
		Generation uint64
	}
	PersistWorkout    struct{ Workout model.Workout }
	RemoveWorkout     struct{ ID string }
	StartWorkout      struct{ Workout model.Workout }
	ShowLiveIndicator struct{}
	HideLiveIndicator struct{}
	// Haptic is tactile feedback for a selection change.
	Haptic struct{}
)

func (FetchWorkouts) isCommand()     {}
func (PersistWorkout) isCommand()    {}
func (RemoveWorkout) isCommand()     {}
func (StartWorkout) isCommand()      {}
func (ShowLiveIndicator) isCommand() {}
func (HideLiveIndicator) isCommand() {}
func (Haptic) isCommand()            {}
