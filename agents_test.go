package main

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// fakeLLM answers every request with the same parts.
type fakeLLM struct {
	mu       sync.Mutex
	parts    []string
	err      error
	requests []*model.LLMRequest
}

func (m *fakeLLM) Name() string { return "fake-gemini" }

func (m *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.mu.Lock()
		m.requests = append(m.requests, req)
		parts, err := m.parts, m.err
		m.mu.Unlock()

		if err != nil {
			yield(nil, err)
			return
		}
		content := &genai.Content{Role: "model"}
		for _, p := range parts {
			content.Parts = append(content.Parts, &genai.Part{Text: p})
		}
		yield(&model.LLMResponse{Content: content, TurnComplete: true}, nil)
	}
}

func (m *fakeLLM) promptTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, req := range m.requests {
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				texts = append(texts, p.Text)
			}
		}
	}
	return texts
}

func newTestResumeParser(t *testing.T, llm *fakeLLM) *GeminiResumeParser {
	t.Helper()
	parserAgent, err := newParserAgent(llm, agentName)
	require.NoError(t, err)
	parser, err := newResumeParser(parserAgent)
	require.NoError(t, err)
	return parser
}

func openSessions(t *testing.T, p *GeminiResumeParser) int {
	t.Helper()
	resp, err := p.sessions.List(t.Context(), &session.ListRequest{AppName: p.appName, UserID: agentUserID})
	require.NoError(t, err)
	return len(resp.Sessions)
}

func TestGeminiResumeParser_JoinsAndCleansReply(t *testing.T) {
	llm := &fakeLLM{parts: []string{"```json\n{\"Skills\": ", "{\"Languages\": [\"Go\"]}}\n```"}}
	parser := newTestResumeParser(t, llm)

	out, err := parser.Parse(t.Context(), "a1", "Jane Doe {Go}")
	require.NoError(t, err)
	assert.Equal(t, `{"Skills": {"Languages": ["Go"]}}`, out)

	found := false
	for _, text := range llm.promptTexts() {
		if strings.Contains(text, "Jane Doe {Go}") && strings.Contains(text, `"Work Experience"`) {
			found = true
		}
	}
	assert.True(t, found, "prompt with resume text not sent")
	assert.Zero(t, openSessions(t, parser))
}

func TestGeminiResumeParser_EmptyReply(t *testing.T) {
	parser := newTestResumeParser(t, &fakeLLM{parts: []string{"  ", "\n"}})

	_, err := parser.Parse(t.Context(), "a1", "Jane Doe")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Zero(t, openSessions(t, parser))
}

func TestGeminiResumeParser_ModelError(t *testing.T) {
	quota := errors.New("quota exceeded")
	parser := newTestResumeParser(t, &fakeLLM{err: quota})

	_, err := parser.Parse(t.Context(), "a1", "Jane Doe")
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)
	assert.Contains(t, err.Error(), "agent stream error")
	assert.Zero(t, openSessions(t, parser))
}

func TestGeminiResumeParser_SessionPerCall(t *testing.T) {
	llm := &fakeLLM{parts: []string{"{}"}}
	parser := newTestResumeParser(t, llm)

	for range 2 {
		_, err := parser.Parse(t.Context(), "a1", "Jane Doe")
		require.NoError(t, err)
	}

	llm.mu.Lock()
	defer llm.mu.Unlock()
	require.Len(t, llm.requests, 2)
	// a fresh session carries no history from the previous call
	assert.Equal(t, len(llm.requests[0].Contents), len(llm.requests[1].Contents))
}
