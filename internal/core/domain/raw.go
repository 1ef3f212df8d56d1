package domain

// RawDocument represents an uploaded reference document.
// It is the input to extraction, before any text is produced.
type RawDocument struct {
	// Name is the original file name. It becomes the passage source.
	Name string

	// MIMEType is the content type (e.g., "application/pdf").
	// May be empty, in which case the file extension decides.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Size returns the content length in bytes.
func (r RawDocument) Size() int {
	return len(r.Content)
}
