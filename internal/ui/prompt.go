package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"dzfresh/internal/shared"
)

// promptModel is a minimal single-field form.
type promptModel struct {
	input    textinput.Model
	title    string
	canceled bool
	done     bool
}

func newPromptModel(title, placeholder string) *promptModel {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = 64
	input.Width = 32
	input.Focus()
	return &promptModel{input: input, title: title}
}

func (m *promptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *promptModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	help := styles.help.Render("enter to confirm • esc to cancel")
	return fmt.Sprintf("%s\n%s\n\n%s\n", styles.title.Render(m.title), m.input.View(), help)
}

// PromptName interactively asks which profile to enroll under. Backing
// out (esc, ctrl+c, empty submit) reports [shared.ErrCanceled].
func PromptName(ctx context.Context) (string, error) {
	program := tea.NewProgram(newPromptModel("Name this profile", "e.g. personal"), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", shared.ErrCanceled
		}
		return "", err
	}

	m, ok := final.(*promptModel)
	if !ok || m.canceled {
		return "", shared.ErrCanceled
	}

	name := strings.TrimSpace(m.input.Value())
	if name == "" {
		return "", shared.ErrCanceled
	}
	return name, nil
}
