package driven

import "context"

// Transcriber converts recorded audio to text.
// Implementations return ErrCollaboratorUnavailable on transport or
// decoding failures; callers decide the user-visible fallback.
type Transcriber interface {
	// Transcribe returns the transcript of the audio. language is a hint
	// such as "en" and may be empty.
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// Translator translates text between languages.
type Translator interface {
	// Translate converts text from source to target language.
	// source may be "auto".
	Translate(ctx context.Context, text, source, target string) (string, error)
}
