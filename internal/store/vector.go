package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
)

// UpsertGlossaryEmbeddings stores one embedding vector per glossary
// entry for later similarity lookups. Enrichment only; translation
// correctness never depends on this data.
func (s *SQLiteStore) UpsertGlossaryEmbeddings(ctx context.Context, jobID string, entries []agents.GlossaryEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d glossary entries", len(vectors), len(entries))
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, entry := range entries {
		payload, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("encode embedding for term %q: %w", entry.Term, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO glossary_embeddings (job_id, term, translation, embedding_json, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(job_id, term) DO UPDATE SET
				translation=excluded.translation,
				embedding_json=excluded.embedding_json,
				updated_at=excluded.updated_at`,
			jobID,
			entry.Term,
			entry.ProposedTranslation,
			string(payload),
			now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GlossaryEmbeddingCount returns how many embeddings are stored for a job.
func (s *SQLiteStore) GlossaryEmbeddingCount(ctx context.Context, jobID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM glossary_embeddings WHERE job_id = ?`, jobID).Scan(&count)
	return count, err
}
