package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Resume struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	UploadStatus     string
	CreatedAt        time.Time
}

type Analysis struct {
	ID        uuid.UUID
	ResumeID  uuid.UUID
	Status    string
	Outcome   json.RawMessage
	Score     sql.NullInt32
	Error     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}
