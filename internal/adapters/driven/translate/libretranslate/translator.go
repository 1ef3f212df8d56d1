// Package libretranslate provides a translation adapter for LibreTranslate.
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Translator implements the interface.
var _ driven.Translator = (*Translator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the LibreTranslate client.
type Config struct {
	// BaseURL is the server URL (default: http://localhost:5000).
	BaseURL string

	// APIKey is sent in the request body when set.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Translator calls the LibreTranslate /translate endpoint.
type Translator struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error,omitempty"`
}

// New creates a new LibreTranslate client.
func New(cfg Config) *Translator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Translator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Translate converts text from source to target. An empty source means "auto".
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: target language is required", domain.ErrInvalidInput)
	}
	if source == "" {
		source = "auto"
	}

	jsonBody, err := json.Marshal(translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: libretranslate: %w", domain.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: libretranslate: read response: %w", domain.ErrCollaboratorUnavailable, err)
	}

	var out translateResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w: libretranslate: %s", domain.ErrCollaboratorUnavailable, domain.ErrRateLimited, msg)
		}
		return "", fmt.Errorf("%w: libretranslate error (status %d): %s",
			domain.ErrCollaboratorUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: libretranslate: decode response: %w", domain.ErrCollaboratorUnavailable, decodeErr)
	}
	if out.TranslatedText == nil {
		return "", fmt.Errorf("%w: libretranslate: response has no translatedText", domain.ErrCollaboratorUnavailable)
	}

	return *out.TranslatedText, nil
}
