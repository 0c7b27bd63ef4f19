package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/ortext/ep"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#76B900")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#76B900"))

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type editorState int

const (
	stateBrowse editorState = iota
	stateEdit
	stateDryRun
)

type editorModel struct {
	err      error
	cuda     *ep.CUDA
	input    textinput.Model
	output   string
	selected int
	state    editorState
}

type dryRunMsg struct {
	err    error
	output string
}

func newEditorModel(cuda *ep.CUDA) *editorModel {
	return &editorModel{cuda: cuda, state: stateBrowse}
}

func (m *editorModel) Init() tea.Cmd {
	return nil
}

func (m *editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateEdit {
			return m.updateEdit(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(cudaFields)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				m.startEdit()
				return m, textinput.Blink
			case stateDryRun:
				m.state = stateBrowse
				m.output = ""
			}

		case "d":
			if m.state == stateBrowse {
				return m, m.dryRun
			}

		case "esc":
			m.state = stateBrowse
			m.output = ""
		}

	case dryRunMsg:
		m.output = msg.output
		m.err = msg.err
		m.state = stateDryRun
	}
	return m, nil
}

func (m *editorModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateBrowse
		m.err = nil
		return m, nil
	case "enter":
		f := cudaFields[m.selected]
		if err := f.apply(m.cuda, strings.TrimSpace(m.input.Value())); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.state = stateBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *editorModel) startEdit() {
	f := cudaFields[m.selected]
	ti := textinput.New()
	ti.Prompt = f.key + ": "
	ti.Placeholder = f.hint()
	ti.Width = 40
	if v, ok := m.cuda.Options().Get(f.key); ok {
		ti.SetValue(v)
	}
	ti.Focus()
	m.input = ti
	m.err = nil
	m.state = stateEdit
}

func (m *editorModel) dryRun() tea.Msg {
	var b strings.Builder
	err := dryRunRegister(&b, m.cuda, false)
	return dryRunMsg{output: b.String(), err: err}
}

func (m *editorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(ep.CUDAName))
	b.WriteString(" option editor\n\n")

	switch m.state {
	case stateBrowse, stateEdit:
		for i, f := range cudaFields {
			line := fmt.Sprintf("%-36s %s", f.key, m.current(f.key))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + keyStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")

		if m.state == stateEdit {
			b.WriteString(m.input.View())
			b.WriteString(" ")
			b.WriteString(hintStyle.Render(cudaFields[m.selected].hint()))
			b.WriteString("\n")
			if m.err != nil {
				b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
				b.WriteString("\n")
			}
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter apply • esc cancel"))
			break
		}

		var preview strings.Builder
		printOptions(&preview, m.cuda.Options())
		b.WriteString(previewStyle.Render(strings.TrimRight(preview.String(), "\n")))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit • d dry run • q quit"))

	case stateDryRun:
		b.WriteString(m.output)
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return b.String()
}

func (m *editorModel) current(key string) string {
	if v, ok := m.cuda.Options().Get(key); ok {
		return v
	}
	return hintStyle.Render("(default)")
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runInteractive(cuda *ep.CUDA) error {
	p := tea.NewProgram(newEditorModel(cuda), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return err
	}
	printOptions(os.Stdout, cuda.Options())
	return nil
}
