// Package transcript provides the scrollable conversation pane for the TUI.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Turn is one question and its reply.
type Turn struct {
	EntryID  int64
	Question string
	Reply    string
	Feedback string
	Warnings []string
	Pending  bool
}

// Transcript renders turns inside a viewport.
type Transcript struct {
	viewport viewport.Model
	styles   *styles.Styles
	turns    []Turn
	width    int
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Transcript{
		viewport: viewport.New(80, 20),
		styles:   s,
		width:    80,
	}
}

// Update forwards scroll messages to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible portion of the transcript.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// SetSize resizes the viewport and re-wraps the content.
func (t *Transcript) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}
	t.width = width
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// Ask appends a pending turn for question.
func (t *Transcript) Ask(question string) {
	t.turns = append(t.turns, Turn{Question: question, Pending: true})
	t.refresh()
}

// Answer completes the last pending turn.
func (t *Transcript) Answer(resp *domain.ChatResponse) {
	i := t.pending()
	if i < 0 {
		return
	}
	t.turns[i].Pending = false
	t.turns[i].EntryID = resp.Entry.ID
	t.turns[i].Reply = resp.Reply
	t.turns[i].Warnings = resp.Warnings
	t.refresh()
}

// Fail completes the last pending turn with an error line.
func (t *Transcript) Fail(err error) {
	i := t.pending()
	if i < 0 {
		return
	}
	t.turns[i].Pending = false
	t.turns[i].Reply = ""
	t.turns[i].Warnings = []string{err.Error()}
	t.refresh()
}

// SetFeedback updates the feedback marker of the turn recorded as entryID.
func (t *Transcript) SetFeedback(entryID int64, feedback string) {
	for i := range t.turns {
		if t.turns[i].EntryID == entryID {
			t.turns[i].Feedback = feedback
		}
	}
	t.refresh()
}

// Last returns the most recent answered turn that was logged.
func (t *Transcript) Last() (Turn, bool) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if !t.turns[i].Pending && t.turns[i].EntryID != 0 {
			return t.turns[i], true
		}
	}
	return Turn{}, false
}

// Turns returns all turns, oldest first.
func (t *Transcript) Turns() []Turn {
	return t.turns
}

func (t *Transcript) pending() int {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Pending {
			return i
		}
	}
	return -1
}

func (t *Transcript) refresh() {
	wrap := lipgloss.NewStyle().Width(t.width - 2)

	var b strings.Builder
	for i, turn := range t.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.styles.User.Render("You"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(turn.Question))
		b.WriteString("\n")

		label := t.styles.Assistant.Render("Assistant")
		if marker := feedbackMarker(turn.Feedback); marker != "" {
			label += " " + t.styles.Muted.Render(marker)
		}
		b.WriteString(label)
		b.WriteString("\n")
		if turn.Pending {
			b.WriteString(t.styles.Muted.Render("..."))
			b.WriteString("\n")
			continue
		}
		if turn.Reply != "" {
			b.WriteString(wrap.Render(turn.Reply))
			b.WriteString("\n")
		}
		for _, w := range turn.Warnings {
			b.WriteString(t.styles.Warning.Render(fmt.Sprintf("! %s", w)))
			b.WriteString("\n")
		}
	}

	t.viewport.SetContent(t.styles.Transcript.Render(b.String()))
	t.viewport.GotoBottom()
}

func feedbackMarker(feedback string) string {
	switch feedback {
	case "":
		return ""
	case domain.FeedbackPositive:
		return "[+]"
	case domain.FeedbackNegative:
		return "[-]"
	default:
		return "[" + feedback + "]"
	}
}
