package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/MimeLyc/blueprint-sub-translator/internal/llm"
	"github.com/MimeLyc/blueprint-sub-translator/internal/service"
	"github.com/MimeLyc/blueprint-sub-translator/internal/store"
	"github.com/MimeLyc/blueprint-sub-translator/pkg/log"
)

type settingsRequest struct {
	TargetLanguage string `json:"target_language"`
	Tone           string `json:"tone"`
	BatchSize      int    `json:"batch_size"`
}

// toSettings resolves effective settings for one request: fields the
// caller omits fall back to the server-side defaults.
func (r settingsRequest) toSettings(defaults service.Settings) (service.Settings, error) {
	settings := defaults
	if raw := strings.TrimSpace(r.TargetLanguage); raw != "" {
		tag, err := language.Parse(raw)
		if err != nil {
			return service.Settings{}, &service.InputError{Message: "invalid target_language", Err: err}
		}
		settings.TargetLanguage = tag
	}
	if settings.TargetLanguage == language.Und {
		return service.Settings{}, &service.InputError{Message: "target_language is required"}
	}
	if r.Tone != "" {
		settings.Tone = r.Tone
	}
	if r.BatchSize > 0 {
		settings.BatchSize = r.BatchSize
	}
	return settings, nil
}

type generateBlueprintRequest struct {
	settingsRequest
	SourceText string `json:"source_text"`
}

func (s *Server) handleGenerateBlueprint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req generateBlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.SourceText) == "" {
		writeError(w, http.StatusBadRequest, "source_text is required")
		return
	}
	settings, err := req.toSettings(s.defaults)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	result, err := s.translator.GenerateBlueprint(r.Context(), req.SourceText, settings)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type executeRequest struct {
	settingsRequest
	Blueprint *agents.Blueprint `json:"blueprint,omitempty"`
}

// handleTranslationByID dispatches /api/translations/{id} and
// /api/translations/{id}/execute.
func (s *Server) handleTranslationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/translations/")
	rest = strings.TrimSuffix(rest, "/")

	if jobID, ok := strings.CutSuffix(rest, "/execute"); ok {
		s.handleExecute(w, r, decodePathID(jobID))
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.handleGetJob(w, r, decodePathID(rest))
}

func decodePathID(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	settings, err := req.toSettings(s.defaults)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	result, err := s.translator.ExecuteTranslation(r.Context(), jobID, req.Blueprint, settings)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.translator.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// writeFailure maps pipeline errors onto HTTP statuses: caller
// mistakes are 4xx, provider outages are 503, everything else is 500.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed: %v", err)
		if s.environment == "production" {
			msg = http.StatusText(status)
		}
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	var (
		inputErr    *service.InputError
		conflict    *store.ConflictError
		unavailable *llm.ModelUnavailableError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
