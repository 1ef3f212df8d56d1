package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestSupportedTypes(t *testing.T) {
	normaliser := New()
	assert.Contains(t, normaliser.SupportedMIMETypes(), "text/plain")
	assert.Contains(t, normaliser.SupportedExtensions(), ".txt")
	assert.Equal(t, 5, normaliser.Priority())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"plain", []byte("This is plain text content."), "This is plain text content."},
		{"byte order mark", []byte("\xef\xbb\xbfhello"), "hello"},
		{"invalid utf-8 dropped", []byte("ok\xff\xfe text"), "ok text"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Normalise(context.Background(), &domain.RawDocument{
				Name: "doc.txt", MIMEType: "text/plain", Content: tt.content,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
