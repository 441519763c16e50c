package service

import (
	"context"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/MimeLyc/blueprint-sub-translator/internal/store"
	"github.com/MimeLyc/blueprint-sub-translator/internal/subtitle"
)

// Settings carries the per-job translation parameters. The model name
// is not part of per-job settings; the agent set is constructed with
// its model once at startup.
type Settings struct {
	TargetLanguage language.Tag
	Tone           string
	BatchSize      int
}

// Repository persists translation jobs and their artifacts.
type Repository interface {
	CreateJob(ctx context.Context, job *store.TranslationJob) error
	GetJob(ctx context.Context, jobID string) (*store.TranslationJob, error)
	SaveBlueprint(ctx context.Context, jobID string, blueprint *agents.Blueprint) error
	SaveFinalResult(ctx context.Context, jobID string, result *store.TranslationResult) error
	TransitionStatus(ctx context.Context, jobID string, next store.Status, allowedPrior ...store.Status) error
	MarkFailed(ctx context.Context, jobID string, cause error) error
	PruneTerminal(ctx context.Context, cutoff time.Time) (int, error)
}

// VectorStore keeps glossary term embeddings for later similarity lookups.
type VectorStore interface {
	UpsertGlossaryEmbeddings(ctx context.Context, jobID string, entries []agents.GlossaryEntry, vectors [][]float64) error
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// AgentSet is the roster of model-backed agents the orchestrator drives.
type AgentSet interface {
	ExtractKeywords(ctx context.Context, sourceText string) ([]agents.Keyword, error)
	GroundTranslations(ctx context.Context, targetLanguage string, keywords []agents.Keyword) ([]agents.GroundedKeyword, error)
	AssembleBlueprint(ctx context.Context, sourceText, targetLanguage, tone string, grounded []agents.GroundedKeyword) (*agents.Blueprint, error)
	Transcreate(ctx context.Context, batch []subtitle.Line, rollingContext string, blueprint *agents.Blueprint, targetLanguage, tone string) ([]string, error)
	Edit(ctx context.Context, batch []subtitle.Line, draft []string, blueprint *agents.Blueprint, targetLanguage, tone string) ([]string, error)
	Review(ctx context.Context, batch []subtitle.Line, edited []string, blueprint *agents.Blueprint, targetLanguage, tone string) ([]string, error)
	PhantomSync(ctx context.Context, batch []subtitle.Line, approved []string) ([]string, []agents.SyncNote, error)
}

// BlueprintResult is what a caller reviews before approving Phase 2.
type BlueprintResult struct {
	JobID          string            `json:"job_id"`
	SourceLanguage string            `json:"source_language"`
	LineCount      int               `json:"line_count"`
	Blueprint      *agents.Blueprint `json:"blueprint"`
}
