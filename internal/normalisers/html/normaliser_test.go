package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestSupportedTypes(t *testing.T) {
	normaliser := New()
	assert.Contains(t, normaliser.SupportedMIMETypes(), "text/html")
	assert.Contains(t, normaliser.SupportedExtensions(), ".htm")
	assert.Equal(t, 50, normaliser.Priority())
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>One</p><p>Two</p>", "One\nTwo"},
		{"scripts and styles removed", "<style>p{}</style><script>x()</script><p>Text</p>", "Text"},
		{"comments removed", "<!-- hidden --><div>shown</div>", "shown"},
		{"entities decoded", "<p>Fish &amp; chips &lt;3</p>", "Fish & chips <3"},
		{"line breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"inline tags", "<p>some <b>bold</b> text</p>", "some bold text"},
		{"spaces collapsed", "<p>a    \t b</p>", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripHTML(tt.in))
		})
	}
}

func TestNormalise_PrependsTitle(t *testing.T) {
	page := `<html><head><title>Rates &amp; Fees</title></head><body><h1>Overview</h1><p>Body.</p></body></html>`

	got, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "p.html", Content: []byte(page)})
	require.NoError(t, err)
	assert.Equal(t, "Rates & Fees\nOverview\nBody.", got)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
