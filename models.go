package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsscore/internal/database"
	"github.com/muhammadolammi/atsscore/internal/resume"
	"github.com/muhammadolammi/atsscore/internal/scoring"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ResumeParser turns resume text into the model's fence-stripped JSON reply.
type ResumeParser interface {
	Parse(ctx context.Context, analysisID, resumeText string) (string, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// AnalysisStore is satisfied by *database.Queries.
type AnalysisStore interface {
	CreateResume(ctx context.Context, arg database.CreateResumeParams) (database.Resume, error)
	GetResume(ctx context.Context, id uuid.UUID) (database.Resume, error)
	CreateAnalysis(ctx context.Context, arg database.CreateAnalysisParams) (database.Analysis, error)
	GetAnalysis(ctx context.Context, id uuid.UUID) (database.Analysis, error)
	UpdateAnalysisStatus(ctx context.Context, arg database.UpdateAnalysisStatusParams) error
	CompleteAnalysis(ctx context.Context, arg database.CompleteAnalysisParams) error
	FailAnalysis(ctx context.Context, arg database.FailAnalysisParams) error
}

type Publisher interface {
	PublishJob(job AnalysisJob) error
	PublishUpdate(update AnalysisUpdate) error
}

// App wires the pipeline to its collaborators. DB, Objects and Publisher are
// nil when the server runs without storage, database and queue.
type App struct {
	DB          AnalysisStore
	Objects     ObjectStore
	Publisher   Publisher
	Parser      ResumeParser
	Extract     func(mimeType string, data []byte) (string, error)
	RABBITMQUrl string
}

func (app *App) asyncEnabled() bool {
	return app.DB != nil && app.Objects != nil && app.Publisher != nil
}

func (app *App) extract(mimeType string, data []byte) (string, error) {
	if app.Extract != nil {
		return app.Extract(mimeType, data)
	}
	return ExtractResumeText(mimeType, data)
}

// AnalysisOutcome is what gets displayed for one resume: the parsed JSON and
// its score, or the parse failure.
type AnalysisOutcome struct {
	Success  bool            `json:"success"`
	Parsed   json.RawMessage `json:"parsed,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Score    *scoring.Score  `json:"score,omitempty"`
	Failure  *resume.Failure `json:"failure,omitempty"`
}

type AnalysisJob struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
}

type AnalysisUpdate struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type AnalysisResponse struct {
	ID        uuid.UUID       `json:"id"`
	ResumeID  uuid.UUID       `json:"resume_id"`
	Status    string          `json:"status"`
	Outcome   json.RawMessage `json:"outcome,omitempty"`
	Score     *int32          `json:"score,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func analysisResponse(a database.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		ID:        a.ID,
		ResumeID:  a.ResumeID,
		Status:    a.Status,
		Outcome:   a.Outcome,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Score.Valid {
		score := a.Score.Int32
		resp.Score = &score
	}
	if a.Error.Valid {
		resp.Error = a.Error.String
	}
	return resp
}
