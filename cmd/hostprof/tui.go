package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"go.jacobcolvin.com/hostprof/loop"
	"go.jacobcolvin.com/hostprof/session"
)

const logLines = 8

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	indicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
)

// screen holds what the TUI draws. The loop thread writes it through the
// indicator surface, results writer, and state listener; the tea program
// reads snapshots. Safe for concurrent use.
type screen struct {
	changed chan struct{}
	done    chan struct{}
	frame   frame
	mu      sync.Mutex
	once    sync.Once
}

// frame is a snapshot of a [screen].
type frame struct {
	label   string
	results string
	logs    []string
	state   session.State
	visible bool
}

func newScreen() *screen {
	return &screen{
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *screen) update(fn func(f *frame)) {
	s.mu.Lock()
	fn(&s.frame)
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// SetVisible implements indicator.Surface.
func (s *screen) SetVisible(visible bool) {
	s.update(func(f *frame) { f.visible = visible })
}

// SetText implements indicator.Surface.
func (s *screen) SetText(text string) {
	s.update(func(f *frame) { f.label = text })
}

// Write replaces the results pane with b.
func (s *screen) Write(b []byte) (int, error) {
	results := string(b)
	s.update(func(f *frame) { f.results = results })

	return len(b), nil
}

func (s *screen) setState(state session.State) {
	s.update(func(f *frame) { f.state = state })
}

func (s *screen) clearResults() {
	s.update(func(f *frame) { f.results = "" })
}

func (s *screen) addLog(line string) {
	s.update(func(f *frame) {
		f.logs = append(f.logs, line)
		if len(f.logs) > logLines {
			f.logs = append([]string(nil), f.logs[len(f.logs)-logLines:]...)
		}
	})
}

func (s *screen) snapshot() frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.frame
	f.logs = append([]string(nil), s.frame.logs...)

	return f
}

// close releases any pending wait.
func (s *screen) close() {
	s.once.Do(func() { close(s.done) })
}

// refreshMsg tells the model to redraw from the screen.
type refreshMsg struct{}

// model is the bubbletea model for the recorder. Key presses are posted to
// the app's loop; the loop reports back through the screen.
type model struct {
	app    *app
	exec   loop.Executor
	screen *screen
	frame  frame
}

func newModel(a *app, exec loop.Executor, s *screen) *model {
	return &model{
		app:    a,
		exec:   exec,
		screen: s,
		frame:  s.snapshot(),
	}
}

// Init waits for the first screen change.
func (m *model) Init() tea.Cmd {
	return m.wait()
}

// wait returns a tea.Cmd that blocks until the screen changes.
func (m *model) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.screen.changed:
			return refreshMsg{}
		case <-m.screen.done:
			return nil
		}
	}
}

// Update handles key presses and screen refreshes.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.exec.Post(m.app.ctrl.Start)
		case "s", "enter":
			m.exec.Post(m.app.indicator.Click)
		case "x":
			m.exec.Post(m.app.ctrl.Stop)
		case "o":
			m.exec.Post(m.app.view.OpenResults)
		case "c":
			m.exec.Post(m.app.ctrl.ClearLastArtifact)
		}

	case refreshMsg:
		m.frame = m.screen.snapshot()

		return m, m.wait()
	}

	return m, nil
}

// View renders the current frame.
func (m *model) View() tea.View {
	return tea.NewView(m.render())
}

func (m *model) render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %s\n\n", titleStyle.Render("hostprof"), faintStyle.Render(m.frame.state.String()))

	if m.frame.visible {
		sb.WriteString(indicatorStyle.Render("● " + m.frame.label))
		sb.WriteString("\n\n")
	}

	if m.frame.results != "" {
		sb.WriteString(m.frame.results)
		sb.WriteString("\n")
	}

	for _, line := range m.frame.logs {
		sb.WriteString(faintStyle.Render(line))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(faintStyle.Render("r start • s/enter stop and show • x stop • o open results • c clear • q quit"))

	return sb.String()
}

// recordTUI runs the recorder TUI until the user quits. It wires state,
// artifact, and log updates into s before starting the loop.
func recordTUI(ctx context.Context, a *app, s *screen, logs <-chan string) error {
	a.onState(s.setState)
	a.onArtifact(func(art *session.Artifact) {
		if art == nil {
			s.clearResults()
		}
	})
	s.setState(a.ctrl.State())

	go func() {
		for line := range logs {
			s.addLog(line)
		}
	}()

	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)

	go func() {
		loopDone <- a.loop.Run(loopCtx)
	}()

	p := tea.NewProgram(newModel(a, a.loop, s))

	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-loopCtx.Done():
		}
	}()

	_, err := p.Run()

	s.close()
	a.loop.Post(func() { shutdown(a, cancel) })
	<-loopDone
	a.close()

	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}

// shutdown stops any session in flight and calls done once the controller
// is idle, so the CPU profiler is released before exit.
func shutdown(a *app, done func()) {
	a.onState(func(s session.State) {
		switch s {
		case session.StateRunning:
			a.ctrl.Stop()
		case session.StateIdle:
			done()
		case session.StateStarting, session.StateStopping:
		}
	})

	switch a.ctrl.State() {
	case session.StateIdle:
		done()
	case session.StateRunning:
		a.ctrl.Stop()
	case session.StateStarting, session.StateStopping:
	}
}
