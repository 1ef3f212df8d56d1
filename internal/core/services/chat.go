package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Collaborator timeouts.
const (
	DefaultLLMTimeout         = 60 * time.Second
	DefaultSpeechTimeout      = 60 * time.Second
	DefaultTranslateTimeout   = 20 * time.Second
	englishLanguage           = "en"
	noTranscript              = "(no transcript)"
	llmUnavailablePlaceholder = "[LLM Error: no LLM configured]"
)

// CSVHeader lists the chat log export columns.
var CSVHeader = []string{"id", "ts", "user_id", "question", "reply", "model", "feature", "version", "feedback"}

// ChatService answers questions from retrieved context and keeps the chat log.
type ChatService struct {
	retrieval   driving.RetrievalService
	llm         driven.LLMService
	logs        driven.ChatLogStore
	prompts     driven.PromptStore
	transcriber driven.Transcriber
	translator  driven.Translator

	llmTimeout       time.Duration
	speechTimeout    time.Duration
	translateTimeout time.Duration
}

// NewChatService creates a chat service.
// The llm parameter is optional; without it replies carry a placeholder.
func NewChatService(
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	logs driven.ChatLogStore,
	prompts driven.PromptStore,
) *ChatService {
	return &ChatService{
		retrieval:        retrieval,
		llm:              llm,
		logs:             logs,
		prompts:          prompts,
		llmTimeout:       DefaultLLMTimeout,
		speechTimeout:    DefaultSpeechTimeout,
		translateTimeout: DefaultTranslateTimeout,
	}
}

// SetTranscriber sets the speech-to-text collaborator.
func (s *ChatService) SetTranscriber(t driven.Transcriber) {
	s.transcriber = t
}

// SetTranslator sets the translation collaborator.
func (s *ChatService) SetTranslator(t driven.Translator) {
	s.translator = t
}

// SetLLMTimeout bounds each LLM call.
func (s *ChatService) SetLLMTimeout(d time.Duration) {
	if d > 0 {
		s.llmTimeout = d
	}
}

// Ask answers one question and appends the exchange to the log.
// Retrieval and LLM failures are folded into the reply and warnings; only an
// invalid request, an unknown pinned version or a log write failure is returned.
func (s *ChatService) Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateKey("model", req.ModelKey); err != nil {
		return nil, err
	}
	feature := strings.ToLower(strings.TrimSpace(req.Feature))
	if feature == "" {
		feature = domain.FeatureRAG
	}
	if feature != domain.FeatureRAG && feature != domain.FeatureLoRA {
		return nil, fmt.Errorf("%w: unknown feature %q", domain.ErrInvalidInput, req.Feature)
	}
	version := strings.TrimSpace(req.Version)
	if version == "" {
		version = domain.DefaultVersion
	}

	resp := &domain.ChatResponse{}
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	query := s.translate(ctx, question, lang, englishLanguage)

	var contextText string
	result, err := s.retrieval.Retrieve(ctx, req.ModelKey, query, domain.RetrievalOptions{Version: version})
	switch {
	case errors.Is(err, domain.ErrVersionNotFound):
		return nil, err
	case err != nil:
		logger.Warn("Retrieval failed for %s: %v", req.ModelKey, err)
		resp.Warnings = append(resp.Warnings, "retrieval failed: "+shortReason(err))
	default:
		contextText = result.Context
		resp.Warnings = append(resp.Warnings, result.Warnings...)
		if result.NotTrained {
			resp.Warnings = append(resp.Warnings, "model has no trained corpus")
		}
	}

	system, err := s.systemPrompt(feature, version, contextText)
	if err != nil {
		return nil, err
	}

	reply := s.complete(ctx, system, query)
	reply = s.translate(ctx, reply, englishLanguage, lang)

	entry, err := s.logs.Append(ctx, domain.ChatLogEntry{
		UserID:   req.UserID,
		ModelKey: req.ModelKey,
		Feature:  feature,
		Version:  version,
		Question: question,
		Answer:   reply,
	})
	if err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}

	resp.Entry = entry
	resp.Reply = reply
	return resp, nil
}

// systemPrompt assembles the system message: the feature line, the pinned
// version marker and the context block.
func (s *ChatService) systemPrompt(feature, version, contextText string) (string, error) {
	name := driven.PromptSystemRAG
	if feature == domain.FeatureLoRA {
		name = driven.PromptSystemLoRA
	}
	line, err := s.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(line))
	if version != domain.DefaultVersion {
		fmt.Fprintf(&b, "\n[Version: %s]", version)
	}
	if contextText != "" {
		tmpl, err := s.prompts.Load(driven.PromptContext)
		if err != nil {
			return "", fmt.Errorf("loading prompt %s: %w", driven.PromptContext, err)
		}
		b.WriteString("\n\n")
		b.WriteString(renderContext(tmpl, contextText))
	}
	return b.String(), nil
}

// renderContext substitutes contextText for the first placeholder in tmpl.
// Other percent signs are left alone. A template without a placeholder gets
// the context appended on its own line.
func renderContext(tmpl, contextText string) string {
	if !strings.Contains(tmpl, driven.ContextPlaceholder) {
		return strings.TrimRight(tmpl, "\n") + "\n" + contextText
	}
	return strings.Replace(tmpl, driven.ContextPlaceholder, contextText, 1)
}

// complete calls the LLM, returning a placeholder reply on failure.
func (s *ChatService) complete(ctx context.Context, system, question string) string {
	if s.llm == nil {
		return llmUnavailablePlaceholder
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	reply, err := s.llm.Chat(llmCtx, []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}, driven.ChatOptions{})
	if err != nil {
		logger.Warn("LLM call failed: %v", err)
		return fmt.Sprintf("[LLM Error: %s]", shortReason(err))
	}
	return strings.TrimSpace(reply)
}

// translate converts text between languages, returning it unchanged when
// no translator is set, the languages match or the call fails.
func (s *ChatService) translate(ctx context.Context, text, source, target string) string {
	if s.translator == nil || text == "" || source == "" || target == "" || source == target {
		return text
	}

	tctx, cancel := context.WithTimeout(ctx, s.translateTimeout)
	defer cancel()

	out, err := s.translator.Translate(tctx, text, source, target)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			logger.Warn("Translation %s->%s failed: %v", source, target, err)
		}
		return text
	}
	return out
}

// Transcribe converts audio to text. Failures yield "(no transcript)".
func (s *ChatService) Transcribe(ctx context.Context, audio []byte, filename, language string) string {
	if s.transcriber == nil || len(audio) == 0 {
		return noTranscript
	}

	sctx, cancel := context.WithTimeout(ctx, s.speechTimeout)
	defer cancel()

	text, err := s.transcriber.Transcribe(sctx, audio, filename, language)
	if err != nil {
		logger.Warn("Transcription failed: %v", err)
		return noTranscript
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return noTranscript
	}
	return text
}

// SetFeedback records feedback on the entry selected by key.
func (s *ChatService) SetFeedback(ctx context.Context, key domain.FeedbackKey, feedback string) (*domain.ChatLogEntry, error) {
	if key.IsZero() {
		return nil, fmt.Errorf("%w: id or ts is required", domain.ErrInvalidInput)
	}
	entry, err := s.logs.SetFeedback(ctx, key, feedback)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Logs lists exchanges matching filter, newest first.
func (s *ChatService) Logs(ctx context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	return s.logs.List(ctx, filter)
}

// Log returns one exchange by id.
func (s *ChatService) Log(ctx context.Context, id int64) (*domain.ChatLogEntry, error) {
	return s.logs.Get(ctx, id)
}

// ExportCSV writes the filtered log as CSV with a header row.
func (s *ChatService) ExportCSV(ctx context.Context, w io.Writer, filter domain.LogFilter) error {
	entries, err := s.logs.List(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.UserID,
			e.Question,
			e.Answer,
			e.ModelKey,
			e.Feature,
			e.Version,
			e.Feedback,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
