package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

const schemaLockKey int64 = 2026101401

var _ ports.ResultArchive = (*ResultRepository)(nil)

type ResultRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db, now: time.Now}
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// api and worker may start together
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_results (
	document_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	category TEXT NOT NULL,
	priority TEXT NOT NULL,
	provider TEXT NOT NULL,
	safety_score INTEGER NOT NULL DEFAULT 0,
	processing_ms BIGINT NOT NULL DEFAULT 0,
	result JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_results_status ON document_results(status);
CREATE INDEX IF NOT EXISTS idx_document_results_category ON document_results(category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveResult upserts; reprocessing a document replaces its archived result.
func (r *ResultRepository) SaveResult(ctx context.Context, result *domain.DocumentProcessingResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "postgres.save_result", errors.New("document id is required"))
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = r.now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO document_results (
	document_id, status, category, priority, provider, safety_score, processing_ms, result, completed_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (document_id) DO UPDATE SET
	status = EXCLUDED.status,
	category = EXCLUDED.category,
	priority = EXCLUDED.priority,
	provider = EXCLUDED.provider,
	safety_score = EXCLUDED.safety_score,
	processing_ms = EXCLUDED.processing_ms,
	result = EXCLUDED.result,
	completed_at = EXCLUDED.completed_at,
	updated_at = EXCLUDED.updated_at
`,
		result.DocumentID,
		string(result.Status),
		string(result.Analysis.Classification.Category),
		string(result.Analysis.Classification.Priority),
		result.Analysis.Provider,
		result.Analysis.Safety.SafetyScore,
		result.ProcessingTime,
		payload,
		completedAt,
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert document result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
SELECT result
FROM document_results
WHERE document_id = $1
`, documentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrResultNotFound, "postgres.get_result", fmt.Errorf("document %s", documentID))
	}
	if err != nil {
		return nil, fmt.Errorf("select document result: %w", err)
	}

	var result domain.DocumentProcessingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal document result: %w", err)
	}
	return &result, nil
}
