package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fitcal/internal/dateutil"
	"fitcal/internal/home"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
)

type homeModel struct {
	theme     Theme
	deps      Deps
	ctx       context.Context
	cal       dateutil.Calendar
	runner    *home.Runner
	indicator *liveIndicator

	state home.State

	// cursor is the highlighted workout of the selected day.
	cursor int
	// draft is the editor's working copy; setCursor indexes its sets in
	// exercise order.
	draft     *model.Workout
	setCursor int

	countsMonth dateutil.Instant
	counts      map[dateutil.Instant]int

	width int
}

// Run shows the terminal home screen until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	out := deps.LogOutput
	if out == nil {
		out = io.Discard
	}
	appLog.SetOutput(out)

	m := newModel(ctx, deps)
	defer m.runner.Close()

	p := tea.NewProgram(wrapSafe(m), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, deps Deps) homeModel {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	ind := newLiveIndicator()
	return homeModel{
		theme:     DefaultTheme(),
		deps:      deps,
		ctx:       ctx,
		cal:       deps.Calendar,
		runner:    home.NewRunner(deps.Store, deps.Session, deps.Calendar, home.WithIndicator(ind)),
		indicator: ind,
	}
}

func (m homeModel) now() dateutil.Instant {
	return dateutil.FromTime(m.deps.Now())
}

func (m homeModel) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

// startMsg builds the initial state inside Update so its commands run
// through the same path as every later transition.
type startMsg struct{}

func (m homeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		s, cmds := home.NewState(m.cal, m.now())
		m.state = s
		var sessionCmd tea.Cmd
		m, sessionCmd = m.apply(home.SessionChanged{Active: m.deps.Session.InWorkout()})
		return m, tea.Batch(m.dispatch(cmds), sessionCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		return m.apply(msg.ev)

	case monthCountsMsg:
		if msg.err != nil {
			appLog.Error("tui: month counts failed", msg.err)
			return m, nil
		}
		m.countsMonth = msg.month
		m.counts = msg.counts
		return m, nil

	case tea.KeyMsg:
		if m.state.EditorOpen() {
			return m.updateEditor(msg)
		}
		return m.updateCalendar(msg)
	}
	return m, nil
}

func (m homeModel) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h":
		return m.apply(home.SelectDay{Day: m.cal.SubtractDays(m.state.Day, 1)})
	case "right", "l":
		return m.apply(home.SelectDay{Day: m.cal.AddDays(m.state.Day, 1)})
	case "up", "k":
		return m.apply(home.SelectDay{Day: m.cal.SubtractDays(m.state.Day, 7)})
	case "down", "j":
		return m.apply(home.SelectDay{Day: m.cal.AddDays(m.state.Day, 7)})
	case "[":
		return m.apply(home.SelectDay{Day: m.cal.PreviousMonth(m.state.Day)})
	case "]":
		return m.apply(home.SelectDay{Day: m.cal.NextMonth(m.state.Day)})
	case "t":
		return m.apply(home.SelectDay{Day: m.now()})
	case "r":
		return m.apply(home.Refresh{})
	case "tab":
		if n := len(m.state.Workouts); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
		return m, nil
	case "enter":
		if m.cursor < len(m.state.Workouts) {
			return m.apply(home.OpenEditor{Workout: m.state.Workouts[m.cursor]})
		}
	}
	return m, nil
}

func (m homeModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q":
		return m.apply(home.CloseEditor{})
	case "up", "k":
		if m.setCursor > 0 {
			m.setCursor--
		}
		return m, nil
	case "down", "j":
		if m.setCursor < countSets(m.draft)-1 {
			m.setCursor++
		}
		return m, nil
	case " ":
		if set := setAt(m.draft, m.setCursor); set != nil {
			set.Completed = !set.Completed
		}
		return m, nil
	case "s":
		return m.apply(home.SaveWorkout{Workout: *m.draft})
	case "R":
		return m.apply(home.RepeatWorkout{Workout: *m.draft, Now: m.now()})
	case "d":
		return m.apply(home.TrashWorkout{})
	}
	return m, nil
}

// apply runs ev through the state and schedules the resulting commands.
func (m homeModel) apply(ev home.Event) (homeModel, tea.Cmd) {
	prevEditing := m.state.Editing
	next, cmds := m.state.Apply(ev)
	m.state = next

	switch {
	case next.Editing == nil:
		m.draft = nil
	case prevEditing == nil || prevEditing.ID != next.Editing.ID || m.draft == nil:
		m.draft = cloneWorkout(*next.Editing)
		m.setCursor = 0
	case isSaved(ev):
		m.draft = cloneWorkout(*next.Editing)
	}
	if m.cursor >= len(next.Workouts) {
		m.cursor = 0
	}

	extra := make([]tea.Cmd, 0, 1)
	if _, ok := ev.(home.WorkoutsLoaded); ok && !next.Loading {
		extra = append(extra, cmdLoadMonthCounts(m.ctx, m.deps.Store, m.cal, next.Day))
	}
	return m, tea.Batch(append(extra, m.dispatch(cmds))...)
}

func isSaved(ev home.Event) bool {
	_, ok := ev.(home.WorkoutSaved)
	return ok
}

// dispatch runs indicator and haptic commands immediately so their order
// is kept, and hands I/O commands to bubbletea.
func (m homeModel) dispatch(cmds []home.Command) tea.Cmd {
	async := make([]tea.Cmd, 0, len(cmds))
	for _, c := range cmds {
		switch c.(type) {
		case home.ShowLiveIndicator, home.HideLiveIndicator, home.Haptic:
			m.runner.Exec(m.ctx, c)
		default:
			async = append(async, cmdExec(m.ctx, m.runner, c))
		}
	}
	return tea.Batch(async...)
}

func cloneWorkout(w model.Workout) *model.Workout {
	ex := make([]model.Exercise, len(w.Exercises))
	for i, e := range w.Exercises {
		e.Sets = append([]model.Set(nil), e.Sets...)
		ex[i] = e
	}
	w.Exercises = ex
	return &w
}

func countSets(w *model.Workout) int {
	if w == nil {
		return 0
	}
	n := 0
	for _, e := range w.Exercises {
		n += len(e.Sets)
	}
	return n
}

func setAt(w *model.Workout, idx int) *model.Set {
	if w == nil {
		return nil
	}
	for i := range w.Exercises {
		sets := w.Exercises[i].Sets
		if idx < len(sets) {
			return &sets[idx]
		}
		idx -= len(sets)
	}
	return nil
}

func (m homeModel) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	if m.width > 0 {
		wrap = wrap.MaxWidth(m.width)
	}
	header := m.theme.Title.Render(m.state.Title()) + "\n" +
		m.theme.Subtitle.Render(m.cal.RelativeDateDisplay(m.state.Day, m.now())) + "\n"

	var body string
	if m.state.EditorOpen() && m.draft != nil {
		body = m.viewEditor()
	} else {
		body = m.viewMonth() + "\n\n" + m.viewDay()
	}

	footer := ""
	if m.state.InWorkout && m.indicator.Visible() {
		footer += m.theme.Live.Render("● Workout in progress") + "\n"
	}
	if m.state.Notice != "" {
		footer += m.theme.Notice.Render(m.state.Notice) + "\n"
	}
	if m.state.Err != nil {
		footer += m.theme.Error.Render("Error: "+m.state.Err.Error()) + "\n"
	}

	help := "←/→ day • ↑/↓ week • [/] month • t today • tab/enter open • r reload • q quit"
	if m.state.EditorOpen() {
		help = "↑/↓ set • space done • s save • R repeat • d delete • esc close"
	}

	return wrap.Render(header + "\n" + body + "\n\n" + footer + m.theme.Help.Render(help))
}

func (m homeModel) viewMonth() string {
	var b strings.Builder
	b.WriteString(m.theme.Subtitle.Render(m.cal.Time(m.state.Day).Format("January 2006")))
	b.WriteString("\n")
	for _, name := range dateutil.DaysOfWeek {
		b.WriteString(m.theme.Day.Render(name))
	}
	b.WriteString("\n")

	now := m.now()
	for _, week := range m.cal.EnclosingMonth(m.state.Day) {
		for _, d := range week {
			label := fmt.Sprintf("%d", m.cal.Time(d).Day())
			if m.countsMonth == m.cal.MonthFirstDay(m.state.Day) && m.counts[m.cal.TruncateDay(d)] > 0 {
				label = m.theme.Marker.Render("•") + label
			}
			style := m.theme.Day
			switch {
			case m.cal.SameDay(d, m.state.Day):
				style = m.theme.Selected
			case m.cal.SameDay(d, now):
				style = m.theme.Today
			case !m.cal.InMonth(d, m.state.Day):
				style = m.theme.OutDay
			}
			b.WriteString(style.Render(label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m homeModel) viewDay() string {
	switch {
	case m.state.Loading:
		return m.theme.Subtitle.Render("Loading...")
	case m.state.RestDay():
		return m.theme.Card.Render("Rest day\n\n" + m.theme.Help.Render("No workouts logged."))
	case m.state.Err != nil && len(m.state.Workouts) == 0:
		return ""
	}

	lines := make([]string, 0, len(m.state.Workouts))
	for i, w := range m.state.Workouts {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s  %s", prefix, m.cal.TimeDisplay(w.StartedAt), w.Name)
		if d := dateutil.TimePeriodDisplay(w.Duration()); d != "" {
			line += "  " + m.theme.Subtitle.Render(d)
		}
		lines = append(lines, line)
	}
	return m.theme.Card.Render(strings.Join(lines, "\n"))
}

func (m homeModel) viewEditor() string {
	w := m.draft
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(w.Name))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render(m.cal.DateEditDisplay(w.StartedAt)))
	if d := dateutil.TimePeriodDisplay(w.Duration()); d != "" {
		b.WriteString(m.theme.Subtitle.Render("  " + d))
	}
	b.WriteString("\n\n")

	idx := 0
	for _, ex := range w.Exercises {
		b.WriteString(ex.Name)
		if ex.RestSeconds > 0 {
			b.WriteString(m.theme.Subtitle.Render("  rest " + dateutil.DurationDisplay(ex.RestSeconds)))
		}
		b.WriteString("\n")
		for _, set := range ex.Sets {
			cursor := "  "
			if idx == m.setCursor {
				cursor = "> "
			}
			check := "[ ]"
			if set.Completed {
				check = "[x]"
			}
			fmt.Fprintf(&b, "%s%s %d x %gkg\n", cursor, check, set.Reps, set.WeightKg)
			idx++
		}
	}
	if w.Notes != "" {
		b.WriteString("\n" + m.theme.Help.Render(w.Notes))
	}
	return m.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}
