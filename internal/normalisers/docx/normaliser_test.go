package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// buildDocx creates a minimal DOCX archive with the given document.xml body.
func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Rate</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>5%</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestSupportedTypes(t *testing.T) {
	normaliser := New()
	assert.Len(t, normaliser.SupportedMIMETypes(), 1)
	assert.Equal(t, []string{".docx"}, normaliser.SupportedExtensions())
	assert.Equal(t, 60, normaliser.Priority())
}

func TestNormalise(t *testing.T) {
	content := buildDocx(t, map[string]string{"word/document.xml": testDocumentXML})

	got, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "a.docx", Content: content})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.\nRate | 5%", got)
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("plain text")},
		{"missing document.xml", buildDocx(t, map[string]string{"other.xml": "<x/>"})},
		{"malformed xml", buildDocx(t, map[string]string{"word/document.xml": "<w:document><w:body>"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "a.docx", Content: tt.content})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
