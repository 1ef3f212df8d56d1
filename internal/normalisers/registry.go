package normalisers

import (
	"context"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// genericMIMETypes carry no format information; the extension decides.
var genericMIMETypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// Registry selects normalisers by MIME type or extension.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
	byExt  map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string][]driven.Normaliser),
		byExt:  make(map[string][]driven.Normaliser),
	}
}

// Register adds a normaliser under all its MIME types and extensions.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range n.SupportedMIMETypes() {
		r.byMIME[m] = insertByPriority(r.byMIME[m], n)
	}
	for _, ext := range n.SupportedExtensions() {
		ext = strings.ToLower(ext)
		r.byExt[ext] = insertByPriority(r.byExt[ext], n)
	}
}

func insertByPriority(list []driven.Normaliser, n driven.Normaliser) []driven.Normaliser {
	list = append(list, n)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority() > list[j].Priority()
	})
	return list
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for m := range r.byMIME {
		types = append(types, m)
	}
	sort.Strings(types)
	return types
}

// Lookup returns the preferred normaliser for a document, or nil.
func (r *Registry) Lookup(raw *domain.RawDocument) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mimeType := baseMIMEType(raw.MIMEType)
	if !genericMIMETypes[mimeType] {
		if list := r.byMIME[mimeType]; len(list) > 0 {
			return list[0]
		}
	}
	if list := r.byExt[strings.ToLower(filepath.Ext(raw.Name))]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Extract returns the text of raw. It never fails: an unsupported or broken
// document yields "" and a warning. Unknown types are read as text when
// their bytes are valid UTF-8.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) string {
	if raw == nil || len(raw.Content) == 0 {
		return ""
	}

	n := r.Lookup(raw)
	if n == nil {
		if utf8.Valid(raw.Content) {
			logger.Debug("no normaliser for %s (%s), reading as text", raw.Name, raw.MIMEType)
			return string(raw.Content)
		}
		logger.Warn("skipping %s: unsupported type %q", raw.Name, raw.MIMEType)
		return ""
	}

	text, err := n.Normalise(ctx, raw)
	if err != nil {
		logger.Warn("text extraction failed for %s: %v", raw.Name, err)
		return ""
	}
	return text
}

func baseMIMEType(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mediaType
}
