package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsscore/internal/database"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

// processAnalysis downloads the stored resume, runs the pipeline on it and
// persists the outcome. Errors mean the pipeline could not run at all.
func (app *App) processAnalysis(ctx context.Context, analysisID uuid.UUID) (*AnalysisOutcome, error) {
	analysis, err := app.DB.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("error getting analysis %s: %w", analysisID, err)
	}
	storedResume, err := app.DB.GetResume(ctx, analysis.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("error getting resume %s: %w", analysis.ResumeID, err)
	}

	fileBytes, err := retry(ctx, 3, func() ([]byte, error) {
		return app.Objects.Get(ctx, storedResume.ObjectKey)
	})
	if err != nil {
		return nil, fmt.Errorf("file download error: %w", err)
	}

	resumeText, err := app.extract(storedResume.Mime, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("text extraction error: %w", err)
	}

	outcome, err := analyzeResume(ctx, app.Parser, analysisID.String(), resumeText)
	if err != nil {
		return nil, err
	}

	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis outcome: %w", err)
	}
	var score sql.NullInt32
	if outcome.Score != nil {
		score = sql.NullInt32{Int32: int32(outcome.Score.Total), Valid: true}
	}

	// finished work is saved even while the worker shuts down
	writeCtx := context.WithoutCancel(ctx)
	_, err = retry(writeCtx, 3, func() (any, error) {
		return nil, app.DB.CompleteAnalysis(writeCtx, database.CompleteAnalysisParams{
			Outcome: outcomeJSON,
			Score:   score,
			ID:      analysisID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save analysis outcome after retries: %w", err)
	}
	return outcome, nil
}

func (app *App) publishStatus(analysisID uuid.UUID, status, message string) {
	update := AnalysisUpdate{
		AnalysisID: analysisID,
		Status:     status,
		Message:    message,
		Timestamp:  time.Now(),
	}
	if err := app.Publisher.PublishUpdate(update); err != nil {
		slog.Warn("failed to publish update", "analysis_id", analysisID, "status", status, "error", err)
	}
}

// handleDelivery runs one queued analysis through its status transitions.
// It reports whether the message should go back on the queue, which happens
// when ctx ends before the analysis could finish.
func (app *App) handleDelivery(ctx context.Context, workerID int, body []byte) (requeue bool) {
	logger := slog.With("component", "worker", "worker_id", workerID)

	var job AnalysisJob
	if err := json.Unmarshal(body, &job); err != nil || job.AnalysisID == uuid.Nil {
		logger.Error("dropping undecodable message", "error", err, "body", string(body))
		return false
	}
	logger = logger.With("analysis_id", job.AnalysisID)
	logger.Info("processing analysis")

	if err := app.DB.UpdateAnalysisStatus(ctx, database.UpdateAnalysisStatusParams{
		Status: StatusProcessing,
		ID:     job.AnalysisID,
	}); err != nil {
		logger.Warn("failed to mark analysis processing", "error", err)
	}
	app.publishStatus(job.AnalysisID, StatusProcessing, "analysis started")

	outcome, err := app.processAnalysis(ctx, job.AnalysisID)
	if err != nil && ctx.Err() != nil {
		logger.Warn("worker stopping, requeueing analysis", "error", err)
		if err := app.DB.UpdateAnalysisStatus(context.WithoutCancel(ctx), database.UpdateAnalysisStatusParams{
			Status: StatusPending,
			ID:     job.AnalysisID,
		}); err != nil {
			logger.Error("failed to reset analysis to pending", "error", err)
		}
		app.publishStatus(job.AnalysisID, StatusPending, "analysis requeued")
		return true
	}
	if err != nil {
		logger.Error("analysis failed", "error", err)
		if err := app.DB.FailAnalysis(ctx, database.FailAnalysisParams{
			Error: sql.NullString{String: err.Error(), Valid: true},
			ID:    job.AnalysisID,
		}); err != nil {
			logger.Error("failed to mark analysis failed", "error", err)
		}
		app.publishStatus(job.AnalysisID, StatusFailed, "analysis failed")
		return false
	}

	message := "analysis completed"
	if !outcome.Success {
		message = "analysis completed: model output could not be parsed"
	}
	app.publishStatus(job.AnalysisID, StatusCompleted, message)
	logger.Info("analysis completed", "parsed", outcome.Success)
	return false
}

func (app *App) worker(ctx context.Context, id int) error {
	// each worker consumes on its own connection
	conn, err := amqp.Dial(app.RABBITMQUrl)
	if err != nil {
		return fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if _, err := declareAnalysesQueue(ch); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("error setting prefetch: %w", err)
	}

	msgs, err := ch.Consume(
		analysesQueue, // queue name
		"",            // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("error consuming rabbitmq message: %w", err)
	}

	slog.Info("worker started", "worker_id", id)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("worker %d: delivery channel closed", id)
			}
			if app.handleDelivery(ctx, id, msg.Body) {
				if err := msg.Nack(false, true); err != nil {
					slog.Warn("failed to requeue message", "worker_id", id, "error", err)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				slog.Warn("failed to ack message", "worker_id", id, "error", err)
			}
		}
	}
}

// StartConsumerWorkerPool blocks until ctx is done or a worker loses its
// broker connection.
func (app *App) StartConsumerWorkerPool(ctx context.Context, numWorkers int) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range numWorkers {
		g.Go(func() error {
			return app.worker(gctx, i+1)
		})
	}
	return g.Wait()
}
