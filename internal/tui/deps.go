package tui

import (
	"context"
	"io"
	"time"

	"fitcal/internal/dateutil"
	"fitcal/internal/home"
)

// Store is what the terminal home screen reads and writes.
type Store interface {
	home.Store
	CountByDay(ctx context.Context, from, to dateutil.Instant, cal dateutil.Calendar) (map[dateutil.Instant]int, error)
}

// Session is the live workout holder.
type Session interface {
	home.Session
	InWorkout() bool
}

// Deps are the collaborators of the terminal home screen.
type Deps struct {
	Store    Store
	Session  Session
	Calendar dateutil.Calendar

	// Now defaults to time.Now.
	Now func() time.Time
	// LogOutput receives log lines while the screen owns the terminal.
	// Nil discards them.
	LogOutput io.Writer
}
