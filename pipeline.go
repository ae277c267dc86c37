package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/muhammadolammi/atsscore/internal/resume"
	"github.com/muhammadolammi/atsscore/internal/scoring"
)

// analyzeResume runs the model over resumeText, parses its reply and scores
// it. A reply that does not parse is a valid outcome; only a failed model
// call returns an error.
func analyzeResume(ctx context.Context, parser ResumeParser, analysisID, resumeText string) (*AnalysisOutcome, error) {
	logger := slog.With("component", "pipeline", "analysis_id", analysisID)
	logger.Info("parsing resume", "text_length", len(resumeText))

	cleaned, err := retry(ctx, 2, func() (string, error) {
		return parser.Parse(ctx, analysisID, resumeText)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing resume with gemini: %w", err)
	}

	result := resume.Parse(cleaned)
	if result.Failure != nil {
		logger.Warn("failed to parse model output as JSON",
			"error", result.Failure.Error,
			"content_preview", preview(cleaned, 100))
		return &AnalysisOutcome{Failure: result.Failure}, nil
	}
	if len(result.Warnings) > 0 {
		logger.Debug("model output deviates from the requested shape", "warnings", result.Warnings)
	}

	score := scoring.Calculate(*result.Resume)
	logger.Info("resume scored", "score", score.Total)

	return &AnalysisOutcome{
		Success:  true,
		Parsed:   result.Raw,
		Warnings: result.Warnings,
		Score:    &score,
	}, nil
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
