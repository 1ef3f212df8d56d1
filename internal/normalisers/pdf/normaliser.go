// Package pdf provides a Normaliser for PDF documents built on pdfcpu.
//
// pdfcpu exposes page content streams rather than laid-out text, so the
// normaliser decodes the string operands of the text-showing operators
// (Tj, TJ, ' and ") and emits one line per text object or line move.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrNoText is returned when a PDF has no extractable text, typically a scan.
var ErrNoText = errors.New("pdf has no extractable text")

// Normaliser handles PDF documents.
type Normaliser struct {
	tempDir string
}

// New creates a PDF normaliser that stages files in the system temp directory.
func New() *Normaliser {
	return &Normaliser{tempDir: os.TempDir()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 80
}

// Normalise extracts the text of every page in page order.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	work, err := os.MkdirTemp(n.tempDir, "ragdesk-pdf-")
	if err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(work)

	in := filepath.Join(work, "document.pdf")
	if err := os.WriteFile(in, raw.Content, 0o600); err != nil {
		return "", fmt.Errorf("staging pdf: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(in)
	if err != nil {
		return "", fmt.Errorf("%w: reading pdf: %v", domain.ErrInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	outDir := filepath.Join(work, "content")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", fmt.Errorf("creating content directory: %w", err)
	}
	if err := api.ExtractContentFile(in, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("%w: extracting pdf content: %v", domain.ErrInvalidInput, err)
	}

	pages, err := readPages(outDir)
	if err != nil {
		return "", err
	}

	var text []string
	for _, nr := range sortedKeys(pages) {
		if nr > pdfCtx.PageCount {
			break
		}
		if page := strings.TrimSpace(pages[nr]); page != "" {
			text = append(text, page)
		}
	}
	if len(text) == 0 {
		return "", ErrNoText
	}
	return strings.Join(text, "\n\n"), nil
}

// readPages decodes every extracted content stream keyed by page number.
// File names end in Content_page_<n>.txt.
func readPages(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading extracted content: %w", err)
	}

	pages := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		i := strings.Index(name, "Content_page_")
		if i < 0 {
			continue
		}
		var nr int
		if _, err := fmt.Sscanf(name[i:], "Content_page_%d", &nr); err != nil {
			continue
		}
		stream, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		pages[nr] += ContentText(stream)
	}
	return pages, nil
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
