// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
)

// State represents the current console state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar displays the bound model, its active version and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	model   string
	version string
	message string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	version := s.version
	if version == "" {
		version = "not trained"
	}
	head := s.styles.Normal.Render(fmt.Sprintf("%s @ %s", s.model, version))

	switch s.state {
	case StateThinking:
		return head + s.styles.Muted.Render("  thinking...")
	case StateError:
		if s.message != "" {
			return head + s.styles.Error.Render("  error: "+s.message)
		}
		return head + s.styles.Error.Render("  error")
	case StateReady:
		if s.message != "" {
			return head + s.styles.Success.Render("  "+s.message)
		}
	}
	return head
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetModel sets the bound model key.
func (s *Bar) SetModel(model string) {
	s.model = model
}

// SetVersion sets the active version id. Empty means not trained.
func (s *Bar) SetVersion(version string) {
	s.version = version
}

// Version returns the displayed version id.
func (s *Bar) Version() string {
	return s.version
}

// SetMessage sets a transient message shown next to the state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets state and message.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
