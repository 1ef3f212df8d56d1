package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

type versionRequest struct {
	Model   string `json:"model" validate:"required"`
	Version string `json:"version" validate:"required"`
}

type trainInfoResponse struct {
	Model    string                 `json:"model"`
	Active   *domain.CorpusVersion  `json:"active"`
	Versions []domain.CorpusVersion `json:"versions"`
}

// logFilter reads model, feedback, user_id, skip and limit query parameters.
func logFilter(r *http.Request) (domain.LogFilter, error) {
	q := r.URL.Query()
	filter := domain.LogFilter{
		ModelKey: q.Get("model"),
		Feedback: q.Get("feedback"),
		UserID:   q.Get("user_id"),
	}
	for name, dst := range map[string]*int{"skip": &filter.Skip, "limit": &filter.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
		}
		*dst = n
	}
	return filter, nil
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := logFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := s.services.Chat.Logs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := logFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Fetch first so a store failure can still produce a JSON error.
	if _, err := s.services.Chat.Logs(r.Context(), filter); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="chat_logs.csv"`)
	if err := s.services.Chat.ExportCSV(r.Context(), w, filter); err != nil {
		logger.Error("export logs: %v", err)
	}
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeServiceError(w, fmt.Errorf("%w: invalid multipart form: %w", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	headers = append(headers, r.MultipartForm.File["files[]"]...)
	if len(headers) == 0 {
		writeServiceError(w, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput))
		return
	}

	docs := make([]domain.RawDocument, 0, len(headers))
	for _, h := range headers {
		doc, err := readUpload(h)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		docs = append(docs, doc)
	}

	version, err := s.services.Training.Train(r.Context(), driving.TrainRequest{
		ModelKey:    r.FormValue("model"),
		VersionID:   r.FormValue("version"),
		Description: r.FormValue("description"),
		Documents:   docs,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func readUpload(h *multipart.FileHeader) (domain.RawDocument, error) {
	f, err := h.Open()
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("%w: open %s: %w", domain.ErrInvalidInput, h.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, h.Filename, err)
	}
	return domain.RawDocument{
		Name:     h.Filename,
		MIMEType: h.Header.Get("Content-Type"),
		Content:  content,
	}, nil
}

func (s *Server) handleTrainInfo(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if model == "" {
		writeServiceError(w, fmt.Errorf("%w: model is required", domain.ErrInvalidInput))
		return
	}

	versions, err := s.services.Training.Versions(r.Context(), model)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := trainInfoResponse{Model: model, Versions: versions}
	active, err := s.services.Training.Active(r.Context(), model)
	switch {
	case err == nil:
		resp.Active = active
	case !errors.Is(err, domain.ErrNotTrained):
		writeServiceError(w, err)
		return
	}
	if resp.Versions == nil {
		resp.Versions = []domain.CorpusVersion{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.services.Training.History(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if versions == nil {
		versions = []domain.CorpusVersion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	version, err := s.services.Training.Activate(r.Context(), req.Model, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.services.Training.DeleteVersion(r.Context(), req.Model, req.Version); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "model": req.Model, "version": req.Version})
}
