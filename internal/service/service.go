// Package service hosts the translation orchestrator: the two-phase
// pipeline that turns a subtitle file and a confirmed blueprint into a
// translated subtitle file, with job state persisted between phases.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/MimeLyc/blueprint-sub-translator/internal/batch"
	"github.com/MimeLyc/blueprint-sub-translator/internal/store"
	"github.com/MimeLyc/blueprint-sub-translator/internal/subtitle"
	"github.com/MimeLyc/blueprint-sub-translator/pkg/log"
)

const defaultTone = "neutral"

// Service drives translation jobs through their lifecycle. Phase 1
// (GenerateBlueprint) produces a reviewable plan; Phase 2
// (ExecuteTranslation) runs the batch pipeline against the approved
// plan.
type Service struct {
	repo     Repository
	agents   AgentSet
	vectors  VectorStore
	embedder Embedder
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithGlossaryIndex enables background embedding of blueprint glossary
// terms into the vector store.
func WithGlossaryIndex(vectors VectorStore, embedder Embedder) Option {
	return func(s *Service) {
		s.vectors = vectors
		s.embedder = embedder
	}
}

func NewService(repo Repository, agentSet AgentSet, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		agents: agentSet,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateBlueprint runs Phase 1: parse the subtitle source, extract
// and ground keywords, and assemble a blueprint for human review. The
// job ends in pending_approval on success and failed on any agent or
// persistence error after creation.
func (s *Service) GenerateBlueprint(ctx context.Context, sourceText string, settings Settings) (*BlueprintResult, error) {
	settings, err := normalizeSettings(settings)
	if err != nil {
		return nil, err
	}

	file, err := subtitle.Parse(sourceText)
	if err != nil {
		return nil, &InputError{Message: "invalid subtitle input", Err: err}
	}

	now := time.Now().UTC()
	job := &store.TranslationJob{
		ID:             uuid.NewString(),
		Status:         store.StatusProcessingBlueprint,
		SourceText:     sourceText,
		SourceLanguage: file.Language.String(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, &PersistenceError{Op: "create job", Err: err}
	}

	log.Info("job %s: generating blueprint (%d lines, source %s, target %s)",
		job.ID, len(file.Lines), job.SourceLanguage, settings.TargetLanguage)

	target := languageName(settings.TargetLanguage)

	keywords, err := s.agents.ExtractKeywords(ctx, sourceText)
	if err != nil {
		return nil, s.failJob(ctx, job.ID, err)
	}

	grounded, err := s.agents.GroundTranslations(ctx, target, keywords)
	if err != nil {
		return nil, s.failJob(ctx, job.ID, err)
	}

	blueprint, err := s.agents.AssembleBlueprint(ctx, sourceText, target, settings.Tone, grounded)
	if err != nil {
		return nil, s.failJob(ctx, job.ID, err)
	}

	if err := s.repo.SaveBlueprint(ctx, job.ID, blueprint); err != nil {
		return nil, s.failJob(ctx, job.ID, &PersistenceError{Op: "save blueprint", Err: err})
	}
	if err := s.repo.TransitionStatus(ctx, job.ID, store.StatusPendingApproval, store.StatusProcessingBlueprint); err != nil {
		return nil, s.failJob(ctx, job.ID, &PersistenceError{Op: "transition to pending_approval", Err: err})
	}

	s.indexGlossary(ctx, job.ID, blueprint.Glossary)

	log.Info("job %s: blueprint ready for review (%d glossary terms)", job.ID, len(blueprint.Glossary))
	return &BlueprintResult{
		JobID:          job.ID,
		SourceLanguage: job.SourceLanguage,
		LineCount:      len(file.Lines),
		Blueprint:      blueprint,
	}, nil
}

// ExecuteTranslation runs Phase 2 against the confirmed blueprint. The
// job must be pending_approval (or failed, for a re-run); any other
// status yields a ConflictError from the repository, so two concurrent
// executions cannot both proceed. When confirmed is nil, the stored
// blueprint is used as approved without edits.
func (s *Service) ExecuteTranslation(ctx context.Context, jobID string, confirmed *agents.Blueprint, settings Settings) (*store.TranslationResult, error) {
	settings, err := normalizeSettings(settings)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	blueprint := confirmed
	if blueprint == nil {
		blueprint = job.Blueprint
	}
	if blueprint == nil {
		return nil, &InputError{Message: "job has no blueprint to execute"}
	}

	if err := s.repo.TransitionStatus(ctx, jobID, store.StatusTranslating, store.StatusPendingApproval, store.StatusFailed); err != nil {
		return nil, err
	}
	if confirmed != nil {
		if err := s.repo.SaveBlueprint(ctx, jobID, confirmed); err != nil {
			return nil, s.failJob(ctx, jobID, &PersistenceError{Op: "save confirmed blueprint", Err: err})
		}
	}

	file, err := subtitle.Parse(job.SourceText)
	if err != nil {
		return nil, s.failJob(ctx, jobID, &InputError{Message: "stored source text no longer parses", Err: err})
	}

	translated, notes, err := s.translateAll(ctx, file.Lines, blueprint, settings)
	if err != nil {
		return nil, s.failJob(ctx, jobID, err)
	}

	for i := range file.Lines {
		file.Lines[i].TranslatedText = translated[i]
	}
	finalText, err := subtitle.Serialize(file)
	if err != nil {
		return nil, s.failJob(ctx, jobID, err)
	}

	result := &store.TranslationResult{
		FinalText:       finalText,
		SyncSuggestions: notes,
	}
	if err := s.repo.SaveFinalResult(ctx, jobID, result); err != nil {
		return nil, s.failJob(ctx, jobID, &PersistenceError{Op: "save final result", Err: err})
	}
	if err := s.repo.TransitionStatus(ctx, jobID, store.StatusComplete, store.StatusTranslating); err != nil {
		return nil, s.failJob(ctx, jobID, &PersistenceError{Op: "transition to complete", Err: err})
	}

	log.Info("job %s: translation complete (%d lines, %d pacing suggestions)", jobID, len(file.Lines), len(notes))
	return result, nil
}

// GetJob returns the persisted job snapshot.
func (s *Service) GetJob(ctx context.Context, jobID string) (*store.TranslationJob, error) {
	return s.repo.GetJob(ctx, jobID)
}

// translateAll runs every batch through the four-stage chain in order,
// carrying rolling context between batches.
func (s *Service) translateAll(ctx context.Context, lines []subtitle.Line, blueprint *agents.Blueprint, settings Settings) ([]string, []agents.SyncNote, error) {
	target := languageName(settings.TargetLanguage)
	batches := batch.Partition(lines, settings.BatchSize)

	translated := make([]string, 0, len(lines))
	var notes []agents.SyncNote
	rollingContext := ""

	for i, window := range batches {
		log.Debug("translating batch %d/%d (%d lines)", i+1, len(batches), len(window))

		draft, err := s.agents.Transcreate(ctx, window, rollingContext, blueprint, target, settings.Tone)
		if err != nil {
			return nil, nil, err
		}
		if err := verifyLineCount(agents.AgentTranscreator, window, draft); err != nil {
			return nil, nil, err
		}

		edited, err := s.agents.Edit(ctx, window, draft, blueprint, target, settings.Tone)
		if err != nil {
			return nil, nil, err
		}
		if err := verifyLineCount(agents.AgentEditor, window, edited); err != nil {
			return nil, nil, err
		}

		approved, err := s.agents.Review(ctx, window, edited, blueprint, target, settings.Tone)
		if err != nil {
			return nil, nil, err
		}
		if err := verifyLineCount(agents.AgentReviewer, window, approved); err != nil {
			return nil, nil, err
		}

		synced, batchNotes, err := s.agents.PhantomSync(ctx, window, approved)
		if err != nil {
			return nil, nil, err
		}
		if err := verifyLineCount(agents.AgentPhantomSync, window, synced); err != nil {
			return nil, nil, err
		}

		translated = append(translated, synced...)
		notes = append(notes, batchNotes...)
		rollingContext = batch.RollingContext(approved)
	}

	return translated, notes, nil
}

// verifyLineCount re-checks the batch-agent postcondition at the
// orchestrator boundary, so alternative AgentSet implementations are
// held to the same contract.
func verifyLineCount(agentName string, window []subtitle.Line, out []string) error {
	if len(out) != len(window) {
		return &agents.ContractViolationError{
			Agent:    agentName,
			Expected: len(window),
			Actual:   len(out),
		}
	}
	return nil
}

// failJob records the failure on the job and returns cause unchanged.
// A detached context is used so a canceled request still leaves the
// failure persisted.
func (s *Service) failJob(ctx context.Context, jobID string, cause error) error {
	log.Error("job %s failed: %v", jobID, cause)
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.MarkFailed(detached, jobID, cause); err != nil {
		log.Error("job %s: recording failure also failed: %v", jobID, err)
	}
	return cause
}

// indexGlossary embeds glossary terms in the background. Best effort:
// a failure is logged, never surfaced, and never blocks the blueprint
// response.
func (s *Service) indexGlossary(ctx context.Context, jobID string, glossary []agents.GlossaryEntry) {
	if s.vectors == nil || s.embedder == nil || len(glossary) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		embedCtx, cancel := context.WithTimeout(detached, 30*time.Second)
		defer cancel()

		texts := make([]string, len(glossary))
		for i, entry := range glossary {
			texts[i] = entry.Term + ": " + entry.ProposedTranslation
		}
		vectors, err := s.embedder.Embed(embedCtx, texts)
		if err != nil {
			log.Warn("job %s: glossary embedding skipped: %v", jobID, err)
			return
		}
		if err := s.vectors.UpsertGlossaryEmbeddings(embedCtx, jobID, glossary, vectors); err != nil {
			log.Warn("job %s: glossary embedding upsert failed: %v", jobID, err)
		}
	}()
}

func normalizeSettings(settings Settings) (Settings, error) {
	if settings.TargetLanguage == language.Und {
		return settings, &InputError{Message: "target language is required"}
	}
	if settings.Tone == "" {
		settings.Tone = defaultTone
	}
	if settings.BatchSize < 1 {
		settings.BatchSize = batch.DefaultWindowSize
	}
	return settings, nil
}

// languageName renders the tag as an English display name for prompts,
// so agents see "German" rather than "de".
func languageName(tag language.Tag) string {
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
