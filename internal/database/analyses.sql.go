package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

const createAnalysis = `-- name: CreateAnalysis :one
INSERT INTO analyses (id, resume_id, status)
VALUES ($1, $2, $3)
RETURNING id, resume_id, status, outcome, score, error, created_at, updated_at
`

type CreateAnalysisParams struct {
	ID       uuid.UUID
	ResumeID uuid.UUID
	Status   string
}

func (q *Queries) CreateAnalysis(ctx context.Context, arg CreateAnalysisParams) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, createAnalysis, arg.ID, arg.ResumeID, arg.Status)
	return scanAnalysis(row)
}

const getAnalysis = `-- name: GetAnalysis :one
SELECT id, resume_id, status, outcome, score, error, created_at, updated_at FROM analyses WHERE id=$1
`

func (q *Queries) GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, getAnalysis, id)
	return scanAnalysis(row)
}

// outcome is nullable jsonb, so it is scanned through a plain byte slice.
func scanAnalysis(row *sql.Row) (Analysis, error) {
	var i Analysis
	var outcome []byte
	err := row.Scan(
		&i.ID,
		&i.ResumeID,
		&i.Status,
		&outcome,
		&i.Score,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if len(outcome) > 0 {
		i.Outcome = json.RawMessage(outcome)
	}
	return i, err
}

const updateAnalysisStatus = `-- name: UpdateAnalysisStatus :exec
UPDATE analyses
SET status=$1, updated_at=CURRENT_TIMESTAMP
WHERE id=$2
`

type UpdateAnalysisStatusParams struct {
	Status string
	ID     uuid.UUID
}

func (q *Queries) UpdateAnalysisStatus(ctx context.Context, arg UpdateAnalysisStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateAnalysisStatus, arg.Status, arg.ID)
	return err
}

const completeAnalysis = `-- name: CompleteAnalysis :exec
UPDATE analyses
SET status='completed', outcome=$1::jsonb, score=$2, error=NULL, updated_at=CURRENT_TIMESTAMP
WHERE id=$3
`

type CompleteAnalysisParams struct {
	Outcome json.RawMessage
	Score   sql.NullInt32
	ID      uuid.UUID
}

func (q *Queries) CompleteAnalysis(ctx context.Context, arg CompleteAnalysisParams) error {
	// lib/pq sends []byte as bytea, which jsonb rejects.
	_, err := q.db.ExecContext(ctx, completeAnalysis, string(arg.Outcome), arg.Score, arg.ID)
	return err
}

const failAnalysis = `-- name: FailAnalysis :exec
UPDATE analyses
SET status='failed', error=$1, updated_at=CURRENT_TIMESTAMP
WHERE id=$2
`

type FailAnalysisParams struct {
	Error sql.NullString
	ID    uuid.UUID
}

func (q *Queries) FailAnalysis(ctx context.Context, arg FailAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, failAnalysis, arg.Error, arg.ID)
	return err
}
