package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/binding"
	"github.com/wippyai/ctxbind/resource"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type action int

const (
	actionCreate action = iota
	actionClassify
	actionToLower
	actionToUpper
	actionView
	actionCallback
	actionCloseViews
	actionClose
)

var actions = []struct {
	id   action
	name string
}{
	{actionCreate, "create context"},
	{actionClassify, "classify"},
	{actionToLower, "to_lower"},
	{actionToUpper, "to_upper"},
	{actionView, "view at offset"},
	{actionCallback, "toggle callback"},
	{actionCloseViews, "close views"},
	{actionClose, "close context"},
}

type modelState int

const (
	stateMenu modelState = iota
	stateInputOffset
)

// maxHistory bounds the event log shown under the menu.
const maxHistory = 8

type interactiveModel struct {
	b        *binding.Binding
	ctx      *binding.Context
	backend  string
	views    []*binding.View
	history  []string
	result   string
	err      error
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(b *binding.Binding, backend string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("0..%d", ctxbind.MaxOffset)
	ti.Prompt = "offset: "
	ti.Width = 10

	m := &interactiveModel{b: b, backend: backend, input: ti}
	b.Ledger().Subscribe(m)
	return m
}

// OnLedgerEvent records ownership events in the history pane.
func (m *interactiveModel) OnLedgerEvent(e resource.Event) {
	m.record(fmt.Sprintf("ledger: %s handle=%d addr=%#x epoch=%d borrows=%d",
		e.Type, e.Handle, e.Addr, e.Epoch, e.Borrows))
}

func (m *interactiveModel) record(line string) {
	m.history = append(m.history, line)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit

		case "q":
			if m.state == stateMenu {
				m.shutdown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateMenu && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "j":
			if m.state == stateMenu && m.selected < len(actions)-1 {
				m.selected++
			}
			return m, nil

		case "esc":
			if m.state == stateInputOffset {
				m.state = stateMenu
				m.input.Blur()
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateMenu:
				if actions[m.selected].id == actionView {
					m.state = stateInputOffset
					m.input.SetValue("")
					return m, m.input.Focus()
				}
				m.perform(actions[m.selected].id)
			case stateInputOffset:
				m.state = stateMenu
				m.input.Blur()
				m.view(m.input.Value())
			}
			return m, nil
		}
	}

	if m.state == stateInputOffset {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) perform(a action) {
	m.result, m.err = "", nil

	if a == actionCreate {
		if m.ctx != nil {
			m.err = fmt.Errorf("a context is already open; close it first")
			return
		}
		m.ctx, m.err = m.b.NewContext()
		if m.err == nil {
			m.result = "context created"
		}
		return
	}
	if a == actionCallback {
		m.toggleCallback()
		return
	}
	if m.ctx == nil {
		m.err = fmt.Errorf("no context; create one first")
		return
	}

	switch a {
	case actionClassify:
		var class binding.Classification
		class, m.err = m.ctx.Classify()
		m.result = "context is " + class.String()
	case actionToLower:
		m.err = m.ctx.ToLower()
		m.result = "to_lower done"
	case actionToUpper:
		m.err = m.ctx.ToUpper()
		m.result = "to_upper done"
	case actionCloseViews:
		for _, v := range m.views {
			_ = v.Close()
		}
		m.result = fmt.Sprintf("closed %d view(s)", len(m.views))
		m.views = nil
	case actionClose:
		if m.err = m.ctx.Close(); m.err == nil {
			m.ctx = nil
			m.result = "context released"
		}
	}
}

func (m *interactiveModel) view(raw string) {
	m.result, m.err = "", nil
	if m.ctx == nil {
		m.err = fmt.Errorf("no context; create one first")
		return
	}
	offset, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		m.err = fmt.Errorf("offset %q: %w", raw, err)
		return
	}
	v, err := m.ctx.View(offset)
	if err != nil {
		m.err = err
		return
	}
	m.views = append(m.views, v)
	m.result = fmt.Sprintf("view %d created", len(m.views))
}

func (m *interactiveModel) toggleCallback() {
	ch := m.b.Channel()
	if ch.Registered() {
		ch.Register(nil)
		m.result = "callback reset to native default"
		return
	}
	ch.Register(func(p *binding.Payload) {
		text, err := p.Text()
		if err != nil {
			m.record("callback: " + err.Error())
			return
		}
		m.record(fmt.Sprintf("callback for '%s' invoked", text))
	})
	m.result = "callback registered"
}

func (m *interactiveModel) shutdown() {
	for _, v := range m.views {
		_ = v.Close()
	}
	m.views = nil
	if m.ctx != nil {
		_ = m.ctx.Close()
		m.ctx = nil
	}
	m.b.Ledger().Unsubscribe(m)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ctxbind"))
	b.WriteString(" backend: ")
	b.WriteString(m.backend)
	if m.b.Strict() {
		b.WriteString(" (strict borrows)")
	}
	b.WriteString("\n\n")

	b.WriteString(m.contextLine())
	b.WriteString("\n")
	for i, v := range m.views {
		b.WriteString(fmt.Sprintf("  view %d @%d: %s\n", i+1, v.Offset(), stateStyle.Render(v.String())))
	}
	b.WriteString("\n")

	switch m.state {
	case stateMenu:
		for i, a := range actions {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + a.name))
			} else {
				b.WriteString("  " + actionStyle.Render(a.name))
			}
			b.WriteString("\n")
		}
	case stateInputOffset:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n\n")

	for _, line := range m.history {
		b.WriteString(helpStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateMenu {
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))
	} else {
		b.WriteString(helpStyle.Render("enter create view • esc back"))
	}
	return b.String()
}

func (m *interactiveModel) contextLine() string {
	if m.ctx == nil {
		return "context: " + stateStyle.Render("none")
	}
	class, err := m.ctx.Classify()
	if err != nil {
		return "context: " + errorStyle.Render(err.Error())
	}
	return fmt.Sprintf("context: handle %d, %s", m.ctx.Handle(), stateStyle.Render(class.String()))
}

func runInteractive(b *binding.Binding, backend string) error {
	p := tea.NewProgram(newInteractiveModel(b, backend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
