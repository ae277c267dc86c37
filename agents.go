package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const (
	agentName     = "resume_parser"
	agentUserID   = "atsscore"
	parserTimeout = 60 * time.Second
)

var ErrEmptyResponse = errors.New("empty agent response")

func GetAgent(ctx context.Context, apiKey, modelName, name string) (agent.Agent, error) {
	geminiModel, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return newParserAgent(geminiModel, name)
}

func newParserAgent(llm model.LLM, name string) (agent.Agent, error) {
	customAgent, err := llmagent.New(llmagent.Config{
		Name:        name,
		Model:       llm,
		Description: "Parse resume text into structured JSON",
		Instruction: instruction(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return customAgent, nil
}

// GeminiResumeParser runs the resume parsing agent, one ADK session per call.
type GeminiResumeParser struct {
	runner   *runner.Runner
	sessions session.Service
	appName  string
	timeout  time.Duration
}

func NewGeminiResumeParser(ctx context.Context, apiKey, modelName string) (*GeminiResumeParser, error) {
	parserAgent, err := GetAgent(ctx, apiKey, modelName, agentName)
	if err != nil {
		return nil, err
	}
	return newResumeParser(parserAgent)
}

func newResumeParser(parserAgent agent.Agent) (*GeminiResumeParser, error) {
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        parserAgent.Name(),
		Agent:          parserAgent,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &GeminiResumeParser{
		runner:   r,
		sessions: sessions,
		appName:  parserAgent.Name(),
		timeout:  parserTimeout,
	}, nil
}

// Parse sends the filled prompt for resumeText and returns the model's
// reply with code fences removed.
func (p *GeminiResumeParser) Parse(ctx context.Context, analysisID, resumeText string) (string, error) {
	logger := slog.With("component", "llm", "operation", "parse_resume", "analysis_id", analysisID)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	created, err := p.sessions.Create(ctx, &session.CreateRequest{
		AppName:   p.appName,
		UserID:    agentUserID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent session: %w", err)
	}
	agentSession := created.Session
	defer func() {
		err := p.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   agentSession.AppName(),
			UserID:    agentSession.UserID(),
			SessionID: agentSession.ID(),
		})
		if err != nil {
			logger.Warn("failed to delete agent session", "session_id", agentSession.ID(), "error", err)
		}
	}()

	prompt := buildPrompt(resumeText)
	logger.Debug("sending prompt to agent", "prompt_length", len(prompt))
	start := time.Now()

	stream := p.runner.Run(ctx, agentSession.UserID(), agentSession.ID(), &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", fmt.Errorf("agent stream error: %w", err)
		}
		if event == nil || !event.IsFinalResponse() || event.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range event.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		output = sb.String()
	}

	if strings.TrimSpace(output) == "" {
		return "", ErrEmptyResponse
	}

	logger.Info("received agent response",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(output))

	return CleanJson(output), nil
}
