package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/muhammadolammi/atsscore/internal/database"
	"github.com/muhammadolammi/atsscore/internal/resume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractedText = "Jane Doe\nBackend Engineer at Acme"

type testEnv struct {
	app       *App
	parser    *fakeParser
	store     *fakeStore
	objects   *fakeObjects
	publisher *fakePublisher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		parser:    &fakeParser{output: sampleResumeJSON},
		store:     newFakeStore(),
		objects:   newFakeObjects(),
		publisher: &fakePublisher{},
	}
	env.app = &App{
		DB:        env.store,
		Objects:   env.objects,
		Publisher: env.publisher,
		Parser:    env.parser,
		Extract: func(mimeType string, data []byte) (string, error) {
			if mimeType == mimePDF {
				return extractedText, nil
			}
			return ExtractResumeText(mimeType, data)
		},
	}
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.routes().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if filename != "" {
		fw, err := mw.CreateFormFile("resume", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ApiError {
	t.Helper()
	var apiErr ApiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestIndex(t *testing.T) {
	env := newTestEnv()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "ATS SCORE")
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestParseResume_Success(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", []byte("%PDF-1.4 fake")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var outcome AnalysisOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.Failure)
	require.NotNil(t, outcome.Score)
	assert.Equal(t, 30, outcome.Score.Total)
	assert.JSONEq(t, sampleResumeJSON, string(outcome.Parsed))

	require.Len(t, env.parser.texts, 1)
	assert.Equal(t, extractedText, env.parser.texts[0])
}

func TestParseResume_RealPDF(t *testing.T) {
	data, err := os.ReadFile("testdata/resume.pdf")
	require.NoError(t, err)

	env := newTestEnv()
	env.app.Extract = nil
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", data))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.parser.texts, 1)
	assert.Contains(t, env.parser.texts[0], "Jane Doe - Backend Engineer")
	assert.Contains(t, env.parser.texts[0], "Skills: Go, PostgreSQL, RabbitMQ")
}

func TestParseResume_UnparseableOutput(t *testing.T) {
	env := newTestEnv()
	env.parser.output = "Sorry, I can't read this resume."
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", []byte("%PDF-1.4 fake")))

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome AnalysisOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.Score)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, resume.FailureMessage, outcome.Failure.Message)
	assert.Equal(t, "Sorry, I can't read this resume.", outcome.Failure.RawOutput)
	assert.NotEmpty(t, outcome.Failure.Error)
}

func TestParseResume_RejectsNonPDF(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.txt", []byte("Jane Doe")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "only PDF resumes are accepted", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Zero(t, env.parser.calls)
}

func TestParseResume_MissingFile(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "resume file is required", decodeError(t, rec).Detail)
}

func TestParseResume_EmptyFile(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "resume file is empty", decodeError(t, rec).Detail)
}

func TestParseResume_ExtractionFails(t *testing.T) {
	env := newTestEnv()
	env.app.Extract = func(string, []byte) (string, error) { return "", ErrEmptyText }
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "scan.pdf", []byte("%PDF-1.4 fake")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Detail, ErrEmptyText.Error())
}

func TestParseResume_ModelError(t *testing.T) {
	env := newTestEnv()
	env.parser.err = errors.New("quota exceeded")
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", []byte("%PDF-1.4 fake")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeError(t, rec).Detail, "quota exceeded")
	assert.Equal(t, 2, env.parser.calls)
}

func TestParseResume_PanicRecovered(t *testing.T) {
	env := newTestEnv()
	env.parser.panics = true
	rec := env.do(uploadRequest(t, "/api/resumes/parse", "resume.pdf", []byte("%PDF-1.4 fake")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "parser exploded", decodeError(t, rec).Detail)
}

func TestCreateAnalysis(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/analyses", "cv.pdf", []byte("%PDF-1.4 fake")))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusPending, resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.ID)

	stored, ok := env.objects.objects[objectKey(resp.ID.String(), "cv.pdf")]
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.4 fake"), stored)

	storedResume, err := env.store.GetResume(t.Context(), resp.ResumeID)
	require.NoError(t, err)
	assert.Equal(t, mimePDF, storedResume.Mime)
	assert.Equal(t, "r2", storedResume.StorageProvider)

	require.Len(t, env.publisher.jobs, 1)
	assert.Equal(t, resp.ID, env.publisher.jobs[0].AnalysisID)
	assert.Equal(t, []string{StatusPending, "job"}, env.publisher.events)
	assert.Zero(t, env.parser.calls)
}

func TestCreateAnalysis_UnsupportedType(t *testing.T) {
	env := newTestEnv()
	rec := env.do(uploadRequest(t, "/api/analyses", "photo.png", []byte("\x89PNG\r\n\x1a\n")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.objects.objects)
	assert.Empty(t, env.publisher.jobs)
}

func TestCreateAnalysis_QueueDown(t *testing.T) {
	env := newTestEnv()
	env.publisher.jobErr = errors.New("connection refused")
	rec := env.do(uploadRequest(t, "/api/analyses", "cv.txt", []byte("Jane Doe")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, env.store.analyses, 1)
	for _, a := range env.store.analyses {
		assert.Equal(t, StatusFailed, a.Status)
		assert.Equal(t, "failed to queue analysis", a.Error.String)
	}
	assert.Equal(t, []string{StatusPending, StatusFailed}, env.publisher.statuses())
}

func TestGetAnalysis(t *testing.T) {
	env := newTestEnv()
	id := env.store.seedAnalysis(env.objects, mimeText, []byte("Jane"))
	require.NoError(t, env.store.CompleteAnalysis(t.Context(), database.CompleteAnalysisParams{
		Outcome: json.RawMessage(`{"success":false}`),
		ID:      id,
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Nil(t, resp.Score)
	assert.JSONEq(t, `{"success":false}`, string(resp.Outcome))
}

func TestGetAnalysis_NotFound(t *testing.T) {
	env := newTestEnv()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)
}

func TestGetAnalysis_InvalidID(t *testing.T) {
	env := newTestEnv()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/analyses/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsyncRoutesNeedInfra(t *testing.T) {
	env := newTestEnv()
	env.app.DB, env.app.Objects, env.app.Publisher = nil, nil, nil

	rec := env.do(uploadRequest(t, "/api/analyses", "cv.pdf", []byte("%PDF-1.4 fake")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(uploadRequest(t, "/api/resumes/parse", "cv.pdf", []byte("%PDF-1.4 fake")))
	assert.Equal(t, http.StatusOK, rec.Code)
}
