package tui

import (
	"fitcal/internal/dateutil"
	"fitcal/internal/home"
)

// eventMsg carries a home.Event produced by a finished command.
type eventMsg struct {
	ev home.Event
}

type monthCountsMsg struct {
	month  dateutil.Instant
	counts map[dateutil.Instant]int
	err    error
}
