package main

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsscore/internal/database"
)

const maxUploadSize = 10 << 20

//go:embed web/index.html
var indexHTML []byte

func (app *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", app.handleIndex)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/resumes/parse", app.handleParseResume)

	if app.asyncEnabled() {
		mux.HandleFunc("POST /api/analyses", app.handleCreateAnalysis)
		mux.HandleFunc("GET /api/analyses/{id}", app.handleGetAnalysis)
	}

	return RequestID(Logger(Recover(mux)))
}

func (app *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

// readUpload reads the multipart "resume" field.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, *ApiError) {
	// multipart framing needs a little room beyond the file itself
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge(fmt.Sprintf("resume must be at most %d MiB", maxUploadSize>>20))
		}
		return nil, ErrBadRequest("failed to parse form: " + err.Error())
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		return nil, ErrBadRequest("resume file is required")
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return nil, ErrTooLarge(fmt.Sprintf("resume must be at most %d MiB", maxUploadSize>>20))
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, ErrBadRequest("failed to read resume: " + err.Error())
	}
	if len(data) == 0 {
		return nil, ErrBadRequest("resume file is empty")
	}

	return &upload{
		filename: header.Filename,
		mimeType: detectMime(header.Filename, header.Header.Get("Content-Type"), data),
		data:     data,
	}, nil
}

// handleParseResume handles POST /api/resumes/parse (multipart: resume)
// Runs the whole pipeline synchronously on an uploaded PDF.
func (app *App) handleParseResume(w http.ResponseWriter, r *http.Request) {
	up, apiErr := readUpload(w, r)
	if apiErr != nil {
		RespondWithError(w, r, apiErr)
		return
	}
	if up.mimeType != mimePDF {
		RespondWithError(w, r, ErrBadRequest("only PDF resumes are accepted"))
		return
	}

	resumeText, err := app.extract(up.mimeType, up.data)
	if err != nil {
		RespondWithError(w, r, ErrBadRequest("failed to extract text from PDF: "+err.Error()))
		return
	}

	analysisID := uuid.NewString()
	outcome, err := analyzeResume(r.Context(), app.Parser, analysisID, resumeText)
	if err != nil {
		slog.Error("resume parsing failed", "request_id", requestIDFrom(r.Context()), "error", err)
		RespondWithError(w, r, ErrLLMProcessing(err.Error()))
		return
	}

	RespondWithJSON(w, http.StatusOK, outcome)
}

// handleCreateAnalysis handles POST /api/analyses (multipart: resume)
// Stores the upload and queues it for the worker pool.
func (app *App) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	up, apiErr := readUpload(w, r)
	if apiErr != nil {
		RespondWithError(w, r, apiErr)
		return
	}
	if !supportedMime(up.mimeType) {
		RespondWithError(w, r, ErrBadRequest(fmt.Sprintf("%v: %s", ErrUnsupportedFileType, up.mimeType)))
		return
	}

	ctx := r.Context()
	analysisID, resumeID := uuid.New(), uuid.New()
	key := objectKey(analysisID.String(), up.filename)

	if err := app.Objects.Put(ctx, key, up.mimeType, up.data); err != nil {
		slog.Error("failed to store resume", "object_key", key, "error", err)
		RespondWithError(w, r, ErrInternalServer("failed to store resume"))
		return
	}

	_, err := app.DB.CreateResume(ctx, database.CreateResumeParams{
		ID:               resumeID,
		OriginalFilename: up.filename,
		Mime:             up.mimeType,
		SizeBytes:        int64(len(up.data)),
		StorageProvider:  "r2",
		ObjectKey:        key,
		UploadStatus:     "uploaded",
	})
	if err != nil {
		slog.Error("failed to record resume", "resume_id", resumeID, "error", err)
		RespondWithError(w, r, ErrInternalServer("failed to record resume"))
		return
	}

	analysis, err := app.DB.CreateAnalysis(ctx, database.CreateAnalysisParams{
		ID:       analysisID,
		ResumeID: resumeID,
		Status:   StatusPending,
	})
	if err != nil {
		slog.Error("failed to create analysis", "analysis_id", analysisID, "error", err)
		RespondWithError(w, r, ErrInternalServer("failed to create analysis"))
		return
	}

	// pending precedes the worker's first update
	app.publishStatus(analysisID, StatusPending, "analysis queued")
	if err := app.Publisher.PublishJob(AnalysisJob{AnalysisID: analysisID}); err != nil {
		slog.Error("failed to queue analysis", "analysis_id", analysisID, "error", err)
		if err := app.DB.FailAnalysis(ctx, database.FailAnalysisParams{
			Error: sql.NullString{String: "failed to queue analysis", Valid: true},
			ID:    analysisID,
		}); err != nil {
			slog.Error("failed to mark analysis failed", "analysis_id", analysisID, "error", err)
		}
		app.publishStatus(analysisID, StatusFailed, "failed to queue analysis")
		RespondWithError(w, r, ErrInternalServer("failed to queue analysis"))
		return
	}

	RespondWithJSON(w, http.StatusAccepted, analysisResponse(analysis))
}

// handleGetAnalysis handles GET /api/analyses/{id}
func (app *App) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondWithError(w, r, ErrBadRequest("invalid analysis id"))
		return
	}

	analysis, err := app.DB.GetAnalysis(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		RespondWithError(w, r, ErrNotFound("analysis not found"))
		return
	}
	if err != nil {
		slog.Error("failed to load analysis", "analysis_id", id, "error", err)
		RespondWithError(w, r, ErrInternalServer("failed to load analysis"))
		return
	}

	RespondWithJSON(w, http.StatusOK, analysisResponse(analysis))
}
