package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"fitcal/internal/dateutil"
	"fitcal/internal/home"
)

// liveIndicator is the home.Indicator of the terminal screen. The runner
// flips it and View reads it.
type liveIndicator struct {
	visible atomic.Bool
}

func newLiveIndicator() *liveIndicator {
	ind := &liveIndicator{}
	ind.visible.Store(true)
	return ind
}

func (l *liveIndicator) SetVisible(v bool) { l.visible.Store(v) }

func (l *liveIndicator) Visible() bool { return l.visible.Load() }

// cmdExec runs an I/O command on the runner and reports its event.
func cmdExec(ctx context.Context, r *home.Runner, c home.Command) tea.Cmd {
	return func() tea.Msg {
		ev := r.Exec(ctx, c)
		if ev == nil {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func cmdLoadMonthCounts(ctx context.Context, store Store, cal dateutil.Calendar, day dateutil.Instant) tea.Cmd {
	return func() tea.Msg {
		grid := cal.EnclosingMonth(day)
		last := grid[len(grid)-1]
		from := grid[0][0]
		to := cal.AddDays(last[6], 1)

		counts, err := store.CountByDay(ctx, from, to, cal)
		return monthCountsMsg{month: cal.MonthFirstDay(day), counts: counts, err: err}
	}
}
