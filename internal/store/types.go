package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
)

// Status is the lifecycle state of a translation job. Transitions are
// initiated only by the orchestrator; the store persists snapshots and
// enforces conditional updates.
type Status string

const (
	StatusProcessingBlueprint Status = "processing_blueprint"
	StatusPendingApproval     Status = "pending_approval"
	StatusTranslating         Status = "translating"
	StatusComplete            Status = "complete"
	StatusFailed              Status = "failed"
)

// Terminal reports whether no further transitions are expected, other
// than a failed job being re-run.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// TranslationResult is the final artifact of a completed job.
type TranslationResult struct {
	FinalText       string            `json:"final_text"`
	SyncSuggestions []agents.SyncNote `json:"sync_suggestions"`
}

// TranslationJob is the persisted job snapshot.
type TranslationJob struct {
	ID             string             `json:"id"`
	Status         Status             `json:"status"`
	SourceText     string             `json:"source_text"`
	SourceLanguage string             `json:"source_language"`
	Blueprint      *agents.Blueprint  `json:"blueprint,omitempty"`
	FinalResult    *TranslationResult `json:"final_result,omitempty"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// ConflictError is returned when a conditional status transition was
// rejected because the job was not in an expected prior state.
type ConflictError struct {
	JobID  string
	Status Status
	Wanted []Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("job %s is in status %q, transition requires one of %v", e.JobID, e.Status, e.Wanted)
}
