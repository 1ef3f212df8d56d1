package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

type chatRequest struct {
	UserID   string `json:"user_id" validate:"max=128"`
	Model    string `json:"model" validate:"required"`
	Feature  string `json:"feature" validate:"omitempty,max=16"`
	Version  string `json:"version"`
	Question string `json:"question" validate:"required"`
	Language string `json:"language" validate:"omitempty,max=16"`
}

type chatResponse struct {
	ID       int64     `json:"id"`
	TS       time.Time `json:"ts"`
	Reply    string    `json:"reply"`
	Warnings []string  `json:"warnings"`
}

type retrieveRequest struct {
	Model   string `json:"model" validate:"required"`
	Query   string `json:"query"`
	TopK    int    `json:"top_k" validate:"gte=0,lte=100"`
	Version string `json:"version"`
}

type feedbackRequest struct {
	ID       int64  `json:"id" validate:"required_without=TS"`
	TS       string `json:"ts" validate:"required_without=ID"`
	Feedback string `json:"feedback" validate:"required"`
}

// initFailedMessage is reported by /healthz when warm-up failed; the
// cause is only logged.
const initFailedMessage = "initialisation failed"

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.services.Readiness == nil {
		resp.Ready = true
	} else {
		resp.Ready = s.services.Readiness.Ready()
		if err := s.services.Readiness.Err(); err != nil && !errors.Is(err, domain.ErrNotReady) {
			resp.Error = initFailedMessage
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	resp, err := s.services.Chat.Ask(r.Context(), domain.ChatRequest{
		UserID:   req.UserID,
		ModelKey: req.Model,
		Feature:  req.Feature,
		Version:  req.Version,
		Question: req.Question,
		Language: req.Language,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	warnings := resp.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		ID:       resp.Entry.ID,
		TS:       resp.Entry.Timestamp,
		Reply:    resp.Reply,
		Warnings: warnings,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.services.Retrieval.Retrieve(r.Context(), req.Model, req.Query, domain.RetrievalOptions{
		TopK:    req.TopK,
		Version: req.Version,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if result.Passages == nil {
		result.Passages = []domain.ScoredPassage{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxAudioBytes); err != nil {
		writeServiceError(w, fmt.Errorf("%w: invalid multipart form: %w", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeServiceError(w, fmt.Errorf("%w: missing file field", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeServiceError(w, fmt.Errorf("%w: read upload: %w", domain.ErrInvalidInput, err))
		return
	}

	text := s.services.Chat.Transcribe(r.Context(), audio, header.Filename, r.FormValue("language"))
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	key := domain.FeedbackKey{ID: req.ID}
	if key.ID == 0 {
		ts, err := time.Parse(time.RFC3339Nano, req.TS)
		if err != nil {
			writeServiceError(w, fmt.Errorf("%w: ts must be RFC 3339: %w", domain.ErrInvalidInput, err))
			return
		}
		key.Timestamp = ts
	}

	entry, err := s.services.Chat.SetFeedback(r.Context(), key, req.Feedback)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
