// SPDX-License-Identifier: MIT
/*
Package tui implements the participant-facing terminal UI: a two-interval
forced-choice response prompt rendered with Bubble Tea.

Each trial runs its own short-lived Bubble Tea program. That keeps the
response screen a pure function of one trial's status and lets the trial
loop stay a plain blocking call.
*/
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audiometry/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

var questions = map[session.TestType]string{
	session.TestGap:   "Which sound contained a brief silent gap?",
	session.TestPitch: "Which sound was higher in pitch?",
}

// ResponsePrompt collects interval choices from the keyboard. It implements
// the trial loop's response source.
type ResponsePrompt struct{}

// NewResponsePrompt returns a keyboard response source.
func NewResponsePrompt() *ResponsePrompt {
	return &ResponsePrompt{}
}

// Await shows the prompt and blocks until the participant presses 1, 2 or
// Escape. A canceled or expired context ends the prompt; deadline expiry is
// reported as a response timeout.
func (r *ResponsePrompt) Await(ctx context.Context, st session.Status) (session.Response, error) {
	m := promptModel{status: st, start: time.Now()}

	p := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := p.Run()

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return session.Response{}, session.ErrResponseTimeout
		case ctx.Err() != nil:
			return session.Response{}, ctx.Err()
		default:
			return session.Response{}, fmt.Errorf("response prompt: %w", err)
		}
	}

	result, ok := final.(promptModel)
	if !ok || result.aborted {
		return session.Response{}, session.ErrAborted
	}
	return session.Response{
		Interval:     result.choice,
		ReactionTime: result.reaction,
	}, nil
}

type promptModel struct {
	status session.Status
	start  time.Time

	choice   int
	reaction time.Duration
	aborted  bool
}

func (m promptModel) Init() tea.Cmd {
	return nil
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("1"))):
		m.choice = 1
		m.reaction = time.Since(m.start)
		return m, tea.Quit

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("2"))):
		m.choice = 2
		m.reaction = time.Since(m.start)
		return m, tea.Quit

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("esc", "ctrl+c"))):
		m.aborted = true
		return m, tea.Quit
	}

	return m, nil
}

func (m promptModel) View() string {
	title := titleStyle.Render("Hearing Test")
	question := infoStyle.Render(questions[m.status.TestType])
	choices := fmt.Sprintf("%s  first sound        %s  second sound",
		choiceStyle.Render("[1]"), choiceStyle.Render("[2]"))
	progress := dimStyle.Render(fmt.Sprintf("trial %d · reversals %d/%d · Esc to stop",
		m.status.Trial, m.status.Reversals, m.status.ReversalTarget))

	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s\n", title, question, choices, progress)
}
