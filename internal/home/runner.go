package home

import (
	"context"
	"sync"

	"fitcal/internal/dateutil"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
)

// Store is the workout persistence the home screen needs.
type Store interface {
	GetWorkouts(ctx context.Context, day dateutil.Instant, cal dateutil.Calendar) ([]model.Workout, error)
	SaveWorkout(ctx context.Context, w model.Workout) (model.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
}

// Session starts live workouts.
type Session interface {
	Start(w model.Workout) error
}

// Indicator receives live indicator visibility changes.
type Indicator interface {
	SetVisible(visible bool)
}

// Runner executes Commands and turns their outcome into Events. A Runner
// serves the commands of a single State, whose fetch generations only grow.
type Runner struct {
	store     Store
	session   Session
	cal       dateutil.Calendar
	indicator Indicator
	haptic    func()

	mu          sync.Mutex
	fetchGen    uint64
	cancelFetch context.CancelFunc
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithIndicator routes Show/HideLiveIndicator commands to ind.
func WithIndicator(ind Indicator) RunnerOption {
	return func(r *Runner) { r.indicator = ind }
}

// WithHaptic sets the feedback function for Haptic commands.
func WithHaptic(fn func()) RunnerOption {
	return func(r *Runner) { r.haptic = fn }
}

// NewRunner returns a Runner backed by store and session.
func NewRunner(store Store, session Session, cal dateutil.Calendar, opts ...RunnerOption) *Runner {
	r := &Runner{store: store, session: session, cal: cal}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs cmd and returns the resulting event, or nil when the command
// has no follow-up. A fetch cancels the in-flight fetch of an older
// generation; a fetch older than the in-flight one is not run at all.
func (r *Runner) Exec(ctx context.Context, cmd Command) Event {
	switch cmd := cmd.(type) {
	case FetchWorkouts:
		fctx, ok := r.beginFetch(ctx, cmd.Generation)
		if !ok {
			return WorkoutsLoaded{Generation: cmd.Generation, Err: context.Canceled}
		}
		defer r.endFetch(cmd.Generation)
		workouts, err := r.store.GetWorkouts(fctx, cmd.Day, r.cal)
		if err != nil {
			if fctx.Err() == nil {
				appLog.Error("home: load workouts failed", err, "day", r.cal.RouletteDateDisplay(cmd.Day))
			}
			return WorkoutsLoaded{Generation: cmd.Generation, Err: err}
		}
		return WorkoutsLoaded{Generation: cmd.Generation, Workouts: workouts}

	case PersistWorkout:
		saved, err := r.store.SaveWorkout(ctx, cmd.Workout)
		if err != nil {
			appLog.Error("home: save workout failed", err, "id", cmd.Workout.ID)
			return OperationFailed{Op: "save", Err: err}
		}
		return WorkoutSaved{Workout: saved}

	case RemoveWorkout:
		if err := r.store.DeleteWorkout(ctx, cmd.ID); err != nil {
			appLog.Error("home: delete workout failed", err, "id", cmd.ID)
			return OperationFailed{Op: "delete", Err: err}
		}
		return WorkoutDeleted{ID: cmd.ID}

	case StartWorkout:
		if err := r.session.Start(cmd.Workout); err != nil {
			appLog.Warn("home: start workout refused", "id", cmd.Workout.ID, "reason", err.Error())
			return OperationFailed{Op: "start", Err: err}
		}
		return WorkoutStarted{Workout: cmd.Workout}

	case ShowLiveIndicator:
		if r.indicator != nil {
			r.indicator.SetVisible(true)
		}
	case HideLiveIndicator:
		if r.indicator != nil {
			r.indicator.SetVisible(false)
		}
	case Haptic:
		if r.haptic != nil {
			r.haptic()
		}
	}
	return nil
}

// beginFetch registers the fetch of generation gen. It reports false when a
// newer fetch has already been registered.
func (r *Runner) beginFetch(ctx context.Context, gen uint64) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.fetchGen {
		return nil, false
	}
	if r.cancelFetch != nil {
		r.cancelFetch()
	}
	fctx, cancel := context.WithCancel(ctx)
	r.fetchGen = gen
	r.cancelFetch = cancel
	return fctx, true
}

// endFetch releases the context of generation gen if it is still registered.
func (r *Runner) endFetch(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchGen == gen && r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}
}

// Close cancels any in-flight fetch.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}
}

// Dispatch applies ev to s and synchronously runs every resulting command,
// feeding follow-up events back in until none remain.
func (r *Runner) Dispatch(ctx context.Context, s State, ev Event) State {
	queue := []Event{ev}
	for len(queue) > 0 {
		var cmds []Command
		s, cmds = s.Apply(queue[0])
		queue = queue[1:]
		for _, cmd := range cmds {
			if next := r.Exec(ctx, cmd); next != nil {
				queue = append(queue, next)
			}
		}
	}
	return s
}

// Start runs the commands returned by NewState and returns the loaded state.
func (r *Runner) Start(ctx context.Context, s State, cmds []Command) State {
	for _, cmd := range cmds {
		if ev := r.Exec(ctx, cmd); ev != nil {
			s = r.Dispatch(ctx, s, ev)
		}
	}
	return s
}
