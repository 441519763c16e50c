package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore persists translation jobs and glossary embeddings.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *TranslationJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, status, source_text, source_language, blueprint_json, result_json, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, NULL, '', ?, ?)`,
		job.ID,
		string(job.Status),
		job.SourceText,
		job.SourceLanguage,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*TranslationJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, status, source_text, source_language, blueprint_json, result_json, error, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		jobID,
	)

	var job TranslationJob
	var status string
	var blueprintJSON, resultJSON sql.NullString
	if err := row.Scan(
		&job.ID,
		&status,
		&job.SourceText,
		&job.SourceLanguage,
		&blueprintJSON,
		&resultJSON,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	job.Status = Status(status)

	if blueprintJSON.Valid && blueprintJSON.String != "" {
		var bp agents.Blueprint
		if err := json.Unmarshal([]byte(blueprintJSON.String), &bp); err != nil {
			return nil, fmt.Errorf("decode blueprint for job %s: %w", jobID, err)
		}
		job.Blueprint = &bp
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result TranslationResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", jobID, err)
		}
		job.FinalResult = &result
	}
	return &job, nil
}

func (s *SQLiteStore) SaveBlueprint(ctx context.Context, jobID string, blueprint *agents.Blueprint) error {
	if blueprint == nil {
		return fmt.Errorf("blueprint is nil")
	}
	payload, err := json.Marshal(blueprint)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET blueprint_json = ?, updated_at = ? WHERE id = ?`,
		string(payload),
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return err
	}
	return s.requireRow(res, jobID)
}

func (s *SQLiteStore) SaveFinalResult(ctx context.Context, jobID string, result *TranslationResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET result_json = ?, updated_at = ? WHERE id = ?`,
		string(payload),
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return err
	}
	return s.requireRow(res, jobID)
}

// TransitionStatus performs a compare-and-swap status write: the update
// applies only when the job is currently in one of allowedPrior. A job
// in any other state yields a ConflictError; an unknown id yields
// ErrJobNotFound.
func (s *SQLiteStore) TransitionStatus(ctx context.Context, jobID string, next Status, allowedPrior ...Status) error {
	if len(allowedPrior) == 0 {
		return fmt.Errorf("at least one allowed prior status is required")
	}

	placeholders := strings.Repeat("?,", len(allowedPrior))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(allowedPrior)+3)
	args = append(args, string(next), time.Now().UTC(), jobID)
	for _, prior := range allowedPrior {
		args = append(args, string(prior))
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error = '', updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	return &ConflictError{JobID: jobID, Status: job.Status, Wanted: allowedPrior}
}

// MarkFailed moves a job to failed from any non-terminal state and
// records the cause. Marking an already-terminal job is a no-op.
func (s *SQLiteStore) MarkFailed(ctx context.Context, jobID string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(StatusFailed),
		message,
		time.Now().UTC(),
		jobID,
		string(StatusComplete),
		string(StatusFailed),
	)
	return err
}

// PruneTerminal deletes complete and failed jobs not updated since the
// cutoff, along with their glossary embeddings. Returns the number of
// jobs removed.
func (s *SQLiteStore) PruneTerminal(ctx context.Context, cutoff time.Time) (int, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM glossary_embeddings WHERE job_id IN (
			SELECT id FROM jobs WHERE status IN (?, ?) AND updated_at < ?
		)`,
		string(StatusComplete),
		string(StatusFailed),
		cutoff.UTC(),
	); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(StatusComplete),
		string(StatusFailed),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) requireRow(res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
