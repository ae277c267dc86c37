package database

import (
	"context"

	"github.com/google/uuid"
)

const createResume = `-- name: CreateResume :one
INSERT INTO resumes (id, original_filename, mime, size_bytes, storage_provider, object_key, upload_status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, original_filename, mime, size_bytes, storage_provider, object_key, upload_status, created_at
`

type CreateResumeParams struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	UploadStatus     string
}

func (q *Queries) CreateResume(ctx context.Context, arg CreateResumeParams) (Resume, error) {
	row := q.db.QueryRowContext(ctx, createResume,
		arg.ID,
		arg.OriginalFilename,
		arg.Mime,
		arg.SizeBytes,
		arg.StorageProvider,
		arg.ObjectKey,
		arg.UploadStatus,
	)
	var i Resume
	err := row.Scan(
		&i.ID,
		&i.OriginalFilename,
		&i.Mime,
		&i.SizeBytes,
		&i.StorageProvider,
		&i.ObjectKey,
		&i.UploadStatus,
		&i.CreatedAt,
	)
	return i, err
}

const getResume = `-- name: GetResume :one
SELECT id, original_filename, mime, size_bytes, storage_provider, object_key, upload_status, created_at FROM resumes WHERE id=$1
`

func (q *Queries) GetResume(ctx context.Context, id uuid.UUID) (Resume, error) {
	row := q.db.QueryRowContext(ctx, getResume, id)
	var i Resume
	err := row.Scan(
		&i.ID,
		&i.OriginalFilename,
		&i.Mime,
		&i.SizeBytes,
		&i.StorageProvider,
		&i.ObjectKey,
		&i.UploadStatus,
		&i.CreatedAt,
	)
	return i, err
}
