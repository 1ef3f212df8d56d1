package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	assert.NotEmpty(t, theme.Primary)
	assert.NotEmpty(t, theme.Error)
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestStyles_RenderLabels(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.User.Render("You"), "You")
	assert.Contains(t, s.Assistant.Render("Assistant"), "Assistant")
}
