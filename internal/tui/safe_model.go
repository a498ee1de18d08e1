package tui

import (
	"errors"
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"

	appLog "fitcal/internal/log"
)

// safeModel keeps a panic in Update or View from leaving the terminal in
// the alternate screen.
type safeModel struct {
	m homeModel
}

func wrapSafe(m homeModel) safeModel {
	return safeModel{m: m}
}

func (s safeModel) Init() tea.Cmd {
	return s.m.Init()
}

func (s safeModel) Update(msg tea.Msg) (tm tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("tui: panic recovered", errors.New(fmt.Sprint(r)),
				"where", "update",
				"stack", string(debug.Stack()),
			)

			s.m.state.Notice = "Unexpected error (see logs)"
			tm = s
			cmd = nil
		}
	}()

	inner, c := s.m.Update(msg)

	if mm, ok := inner.(homeModel); ok {
		s.m = mm
	}
	return s, c
}

func (s safeModel) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("tui: panic recovered", errors.New(fmt.Sprint(r)),
				"where", "view",
				"stack", string(debug.Stack()),
			)
			out = "Unexpected error (see logs)"
		}
	}()
	return s.m.View()
}

var _ tea.Model = safeModel{}
