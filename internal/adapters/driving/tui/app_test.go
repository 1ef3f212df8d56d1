package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func newTestApp(t *testing.T) (*App, *MockChatService, *MockTrainingService) {
	t.Helper()
	chat := &MockChatService{}
	training := &MockTrainingService{active: &domain.CorpusVersion{ModelKey: "Llama", VersionID: "v2"}}
	app, err := NewApp(NewPorts(chat, training), "Llama")
	require.NoError(t, err)
	app.SetDimensions(80, 24)
	return app, chat, training
}

func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// run executes cmd synchronously and feeds its message back into the app.
func run(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	app.Update(cmd())
}

func askQuestion(t *testing.T, app *App, question string) {
	t.Helper()
	typeText(app, question)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, app, cmd)
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, " Llama ")

	require.NoError(t, err)
	assert.Equal(t, "Llama", app.Model())
	assert.False(t, app.Ready())
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		model   string
		wantErr error
	}{
		{"nil ports", nil, "Llama", ErrMissingChatService},
		{"missing chat", &Ports{}, "Llama", ErrMissingChatService},
		{"missing model", &Ports{Chat: &MockChatService{}}, "  ", ErrMissingModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := NewApp(tt.ports, tt.model)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, app)
		})
	}
}

func TestApp_WithContext(t *testing.T) {
	app, _, _ := newTestApp(t)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_Init(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_View_BeforeSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, "Llama")
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, "Llama")
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Llama")
}

func TestApp_Ask(t *testing.T) {
	app, chat, _ := newTestApp(t)

	askQuestion(t, app, "what is ragdesk?")

	require.Len(t, chat.asked, 1)
	assert.Equal(t, domain.ChatRequest{UserID: DefaultUserID, ModelKey: "Llama", Question: "what is ragdesk?"}, chat.asked[0])

	turns := app.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, int64(1), turns[0].EntryID)
	assert.Equal(t, "answer: what is ragdesk?", turns[0].Reply)
	assert.False(t, turns[0].Pending)
	assert.False(t, app.Busy())
	assert.Contains(t, app.View(), "answer: what is ragdesk?")
}

func TestApp_Ask_WithUserID(t *testing.T) {
	app, chat, _ := newTestApp(t)
	app.WithUserID("alice")

	askQuestion(t, app, "hi")

	require.Len(t, chat.asked, 1)
	assert.Equal(t, "alice", chat.asked[0].UserID)
}

func TestApp_Ask_EmptyInputIgnored(t *testing.T) {
	app, chat, _ := newTestApp(t)

	typeText(app, "   ")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, chat.asked)
}

func TestApp_Ask_BusyIgnoresSecondQuestion(t *testing.T) {
	app, _, _ := newTestApp(t)

	typeText(app, "first")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, app.Busy())

	typeText(app, "second")
	_, second := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)
	assert.Len(t, app.Transcript(), 1)
}

func TestApp_Ask_Error(t *testing.T) {
	app, chat, _ := newTestApp(t)
	chat.askErr = errors.New("model unknown")

	askQuestion(t, app, "hi")

	assert.EqualError(t, app.Err(), "model unknown")
	turns := app.Transcript()
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"model unknown"}, turns[0].Warnings)
	assert.False(t, app.Busy())
}

func TestApp_AskRequestedMessage(t *testing.T) {
	app, chat, _ := newTestApp(t)

	_, cmd := app.Update(messages.AskRequested{Question: "direct"})
	run(t, app, cmd)

	require.Len(t, chat.asked, 1)
	assert.Equal(t, "direct", chat.asked[0].Question)
}

func TestApp_Feedback(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"plus", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}}, domain.FeedbackPositive},
		{"ctrl+f", tea.KeyMsg{Type: tea.KeyCtrlF}, domain.FeedbackPositive},
		{"minus", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}}, domain.FeedbackNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, chat, _ := newTestApp(t)
			askQuestion(t, app, "hi")

			_, cmd := app.Update(tt.key)
			run(t, app, cmd)

			assert.Equal(t, tt.want, chat.feedback[1])
			assert.Equal(t, tt.want, app.Transcript()[0].Feedback)
		})
	}
}

func TestApp_Feedback_SameKeyClears(t *testing.T) {
	app, chat, _ := newTestApp(t)
	askQuestion(t, app, "hi")
	plus := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}}

	_, cmd := app.Update(plus)
	run(t, app, cmd)
	_, cmd = app.Update(plus)
	run(t, app, cmd)

	assert.Equal(t, "", chat.feedback[1])
	assert.Equal(t, "", app.Transcript()[0].Feedback)
}

func TestApp_Feedback_TypingPlusGoesToInput(t *testing.T) {
	app, chat, _ := newTestApp(t)
	askQuestion(t, app, "hi")

	typeText(app, "c+")

	assert.Empty(t, chat.feedback)
	assert.Equal(t, "c+", app.input.Value())
}

func TestApp_Feedback_NothingToRate(t *testing.T) {
	app, _, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlF})

	assert.Nil(t, cmd)
	assert.Equal(t, "nothing to rate yet", app.statusBar.Message())
}

func TestApp_Feedback_Error(t *testing.T) {
	app, chat, _ := newTestApp(t)
	askQuestion(t, app, "hi")
	chat.fbErr = domain.ErrNotFound

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	run(t, app, cmd)

	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
}

func TestApp_ActiveVersion(t *testing.T) {
	app, _, training := newTestApp(t)

	run(t, app, app.loadActiveVersion())
	assert.Equal(t, "v2", app.ActiveVersion())

	training.active = nil
	run(t, app, app.loadActiveVersion())
	assert.Equal(t, "", app.ActiveVersion())
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "not trained")
}

func TestApp_ActiveVersion_NoTraining(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, "Llama")
	require.NoError(t, err)

	assert.Nil(t, app.loadActiveVersion())
}

func TestApp_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
		{"quit message", messages.Quit{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t)
			_, cmd := app.Update(tt.msg)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestApp_ErrorOccurred(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Contains(t, app.View(), "boom")
}
