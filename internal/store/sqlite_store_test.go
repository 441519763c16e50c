package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestJob(id string) *TranslationJob {
	now := time.Now().UTC().Truncate(time.Second)
	return &TranslationJob{
		ID:             id,
		Status:         StatusProcessingBlueprint,
		SourceText:     "1\n00:00:01,000 --> 00:00:02,000\nHello\n",
		SourceLanguage: "en",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateAndGetJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := newTestJob("job-1")
	require.NoError(t, store.CreateJob(ctx, job))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)
	assert.Equal(t, StatusProcessingBlueprint, loaded.Status)
	assert.Equal(t, job.SourceText, loaded.SourceText)
	assert.Nil(t, loaded.Blueprint)
	assert.Nil(t, loaded.FinalResult)
}

func TestGetJob_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSaveBlueprintRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-1")))

	blueprint := &agents.Blueprint{
		Summary:   "a drama",
		KeyPoints: []string{"formal register"},
		Glossary: []agents.GlossaryEntry{
			{Term: "Winterfell", ProposedTranslation: "Winterfell", Justification: "established"},
		},
	}
	require.NoError(t, store.SaveBlueprint(ctx, "job-1", blueprint))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.Blueprint)
	assert.Equal(t, blueprint.Summary, loaded.Blueprint.Summary)
	require.Len(t, loaded.Blueprint.Glossary, 1)
}

func TestSaveFinalResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-1")))

	result := &TranslationResult{
		FinalText:       "1\n00:00:01,000 --> 00:00:02,000\nHallo\n",
		SyncSuggestions: []agents.SyncNote{{Sequence: 1, Suggestion: "compressed"}},
	}
	require.NoError(t, store.SaveFinalResult(ctx, "job-1", result))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.FinalResult)
	assert.Equal(t, result.FinalText, loaded.FinalResult.FinalText)
	require.Len(t, loaded.FinalResult.SyncSuggestions, 1)
}

func TestTransitionStatus_CAS(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-1")))

	// allowed transition
	require.NoError(t, store.TransitionStatus(ctx, "job-1", StatusPendingApproval, StatusProcessingBlueprint))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, loaded.Status)

	// repeating the same transition now conflicts
	err = store.TransitionStatus(ctx, "job-1", StatusPendingApproval, StatusProcessingBlueprint)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, StatusPendingApproval, conflict.Status)

	// unknown job
	err = store.TransitionStatus(ctx, "missing", StatusTranslating, StatusPendingApproval)
	assert.ErrorIs(t, err, ErrJobNotFound)

	// multiple allowed priors
	require.NoError(t, store.TransitionStatus(ctx, "job-1", StatusTranslating, StatusPendingApproval, StatusFailed))
}

func TestMarkFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-1")))

	require.NoError(t, store.MarkFailed(ctx, "job-1", errors.New("model unavailable")))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, loaded.Status)
	assert.Equal(t, "model unavailable", loaded.Error)

	// a completed job stays completed
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-2")))
	require.NoError(t, store.TransitionStatus(ctx, "job-2", StatusPendingApproval, StatusProcessingBlueprint))
	require.NoError(t, store.TransitionStatus(ctx, "job-2", StatusTranslating, StatusPendingApproval))
	require.NoError(t, store.TransitionStatus(ctx, "job-2", StatusComplete, StatusTranslating))
	require.NoError(t, store.MarkFailed(ctx, "job-2", errors.New("late failure")))

	loaded, err = store.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, loaded.Status)
}

func TestPruneTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := newTestJob("job-old")
	old.Status = StatusFailed
	require.NoError(t, store.CreateJob(ctx, old))
	require.NoError(t, store.UpsertGlossaryEmbeddings(ctx, "job-old",
		[]agents.GlossaryEntry{{Term: "x", ProposedTranslation: "y"}},
		[][]float64{{0.1, 0.2}},
	))

	fresh := newTestJob("job-fresh")
	require.NoError(t, store.CreateJob(ctx, fresh))

	pruned, err := store.PruneTerminal(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = store.GetJob(ctx, "job-old")
	assert.ErrorIs(t, err, ErrJobNotFound)

	count, err := store.GlossaryEmbeddingCount(ctx, "job-old")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.GetJob(ctx, "job-fresh")
	assert.NoError(t, err)
}

func TestUpsertGlossaryEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newTestJob("job-1")))

	entries := []agents.GlossaryEntry{
		{Term: "Winterfell", ProposedTranslation: "Winterfell"},
		{Term: "Godswood", ProposedTranslation: "Götterhain"},
	}
	vectors := [][]float64{{0.1}, {0.2}}
	require.NoError(t, store.UpsertGlossaryEmbeddings(ctx, "job-1", entries, vectors))

	// upsert of the same terms does not duplicate
	require.NoError(t, store.UpsertGlossaryEmbeddings(ctx, "job-1", entries, vectors))

	count, err := store.GlossaryEmbeddingCount(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// mismatched input is rejected
	err = store.UpsertGlossaryEmbeddings(ctx, "job-1", entries, vectors[:1])
	assert.Error(t, err)
}
