package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DefaultUserID is recorded in the chat log for questions asked from the console.
const DefaultUserID = "tui"

// App is the chat console following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusBar  *status.Bar

	// model is the bound model key.
	model  string
	userID string

	// busy is set while a question is in flight.
	busy bool

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat console bound to modelKey.
func NewApp(ports *Ports, modelKey string) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingChatService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingModel)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetModel(modelKey)

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusBar:  bar,
		model:      modelKey,
		userID:     DefaultUserID,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithUserID sets the user id recorded with each question.
func (a *App) WithUserID(userID string) *App {
	if userID != "" {
		a.userID = userID
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("ragdesk - "+a.model),
		a.input.Init(),
		a.loadActiveVersion(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AskRequested:
		return a, a.ask(msg.Question)

	case messages.AnswerReceived:
		a.busy = false
		if msg.Err != nil {
			a.err = msg.Err
			a.transcript.Fail(msg.Err)
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.err = nil
		a.transcript.Answer(msg.Response)
		a.statusBar.Clear()
		// A train or activate elsewhere may have moved the active version.
		return a, a.loadActiveVersion()

	case messages.FeedbackSaved:
		if msg.Err != nil {
			a.err = msg.Err
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.transcript.SetFeedback(msg.Entry.ID, msg.Entry.Feedback)
		a.statusBar.Clear()
		a.statusBar.SetMessage("feedback saved")
		return a, nil

	case messages.ActiveVersionLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		if msg.Version == nil {
			a.statusBar.SetVersion("")
		} else {
			a.statusBar.SetVersion(msg.Version.VersionID)
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	empty := strings.TrimSpace(a.input.Value()) == ""

	switch {
	case keymap.Matches(keyStr, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(keyStr, a.keymap.Send):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.busy {
			return a, nil
		}
		a.input.Reset()
		return a, a.ask(question)

	case keyStr == "ctrl+f" || (empty && keymap.Matches(keyStr, a.keymap.Positive)):
		return a, a.feedback(domain.FeedbackPositive)

	case empty && keymap.Matches(keyStr, a.keymap.Negative):
		return a, a.feedback(domain.FeedbackNegative)

	case keymap.Matches(keyStr, a.keymap.ScrollUp), keymap.Matches(keyStr, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask records the pending turn and returns the command that calls the chat service.
func (a *App) ask(question string) tea.Cmd {
	a.busy = true
	a.transcript.Ask(question)
	a.statusBar.SetState(status.StateThinking)
	a.statusBar.SetMessage("")

	chat := a.ports.Chat
	ctx := a.ctx
	req := domain.ChatRequest{
		UserID:   a.userID,
		ModelKey: a.model,
		Question: question,
	}
	return func() tea.Msg {
		resp, err := chat.Ask(ctx, req)
		return messages.AnswerReceived{Question: question, Response: resp, Err: err}
	}
}

// feedback records value on the last logged reply.
func (a *App) feedback(value string) tea.Cmd {
	last, ok := a.transcript.Last()
	if !ok {
		a.statusBar.SetMessage("nothing to rate yet")
		return nil
	}

	chat := a.ports.Chat
	ctx := a.ctx
	key := domain.FeedbackKey{ID: last.EntryID}
	// Pressing the same key again clears the feedback.
	if last.Feedback == value {
		value = domain.FeedbackNone
	}
	return func() tea.Msg {
		entry, err := chat.SetFeedback(ctx, key, value)
		return messages.FeedbackSaved{Entry: entry, Err: err}
	}
}

func (a *App) loadActiveVersion() tea.Cmd {
	if a.ports.Training == nil {
		return nil
	}
	training := a.ports.Training
	ctx := a.ctx
	model := a.model
	return func() tea.Msg {
		v, err := training.Active(ctx, model)
		if errors.Is(err, domain.ErrNotTrained) {
			return messages.ActiveVersionLoaded{}
		}
		return messages.ActiveVersionLoaded{Version: v, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	title := a.styles.Title.Render("ragdesk") + a.styles.Muted.Render("  "+a.model)
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		a.transcript.View(),
		a.input.View(),
		a.statusBar.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sets the terminal dimensions and lays out the components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// title, input (bordered, 3 lines) and status bar
	const chrome = 1 + 3 + 1
	a.transcript.SetSize(width, height-chrome)
	a.input.SetWidth(width)
	a.statusBar.SetWidth(width)
}

// Model returns the bound model key.
func (a *App) Model() string {
	return a.model
}

// Busy reports whether a question is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Transcript returns the conversation so far.
func (a *App) Transcript() []transcript.Turn {
	return a.transcript.Turns()
}

// ActiveVersion returns the version shown in the status bar.
func (a *App) ActiveVersion() string {
	return a.statusBar.Version()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}
