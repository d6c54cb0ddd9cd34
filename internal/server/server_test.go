package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

const churnCSV = "customer_id,plan,price\n1,basic,1\n2,pro,2\n3,basic,3\n4,team,4\n5,pro,5\n"

type scriptedRuntime struct {
	replies []string
	err     error
}

func (s *scriptedRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	text := "ok"
	if len(s.replies) > 0 {
		text, s.replies = s.replies[0], s.replies[1:]
	}
	return &ai.GenerateResponse{Model: req.Model, Choices: []ai.Choice{{Message: ai.Message{Content: text}}}}, nil
}

func newTestServer(t *testing.T, rt ai.Runtime) *httptest.Server {
	t.Helper()
	a := app.New(session.NewMemoryStore(), rt, "gpt-4")
	srv := httptest.NewServer(New(a, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func upload(t *testing.T, url, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &scriptedRuntime{})
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, &scriptedRuntime{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"name": "demo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"name": "demo"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[errorBody](t, resp)
	assert.Equal(t, "duplicate_name", body.Kind)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]session.Summary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "demo", list[0].Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions/demo", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/sessions/demo", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/sessions/demo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadGenerateAndExport(t *testing.T) {
	srv := newTestServer(t, &scriptedRuntime{replies: []string{
		"1. What drives churn?\n2. Which plan costs most?",
		"- Is price linked to plan?",
		"## Overview\n\nFive rows.",
	}})
	doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"name": "demo"})

	resp := upload(t, srv.URL+"/sessions/demo/datasets", "churn.csv", churnCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	up := decodeBody[uploadResponse](t, resp)
	assert.Equal(t, "churn.csv", up.Dataset.Filename)
	assert.Equal(t, 5, up.Dataset.Rows)
	assert.Contains(t, up.Preview, "| customer_id | plan | price |")

	resp = upload(t, srv.URL+"/sessions/demo/datasets", "bad.csv", "a,b\n1,2,3\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions/demo/questions", map[string]any{"objective": "reduce churn"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	q := decodeBody[session.QuestionEntry](t, resp)
	assert.Equal(t, "reduce churn", q.Objective)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions/demo/followups", map[string]any{"pick": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	fu := decodeBody[followUpResponse](t, resp)
	assert.Equal(t, "Which plan costs most?", fu.Question)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions/demo/report", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions/demo/export/questions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "demo_churn_questions.md")
	var md bytes.Buffer
	_, _ = md.ReadFrom(resp.Body)
	assert.True(t, strings.HasPrefix(md.String(), "# AI-Generated EDA Questions"))
	assert.Contains(t, md.String(), "### Which plan costs most?")

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions/demo/export/report?format=html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "demo_churn_report.html")

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions/demo/export/report?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompletionErrorsMapToBadGateway(t *testing.T) {
	srv := newTestServer(t, &scriptedRuntime{err: &ai.ServerError{APIError: &ai.APIError{StatusCode: 503, Message: "down"}}})
	doJSON(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"name": "demo"})
	upload(t, srv.URL+"/sessions/demo/datasets", "churn.csv", churnCSV)

	resp := doJSON(t, http.MethodPost, srv.URL+"/sessions/demo/explain", map[string]string{"column": "price"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decodeBody[errorBody](t, resp)
	assert.Equal(t, "completion_service", body.Kind)
	assert.Equal(t, "server", body.Failure)

	resp = doJSON(t, http.MethodPost, srv.URL+"/sessions/demo/explain", map[string]string{"column": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/sessions/demo", nil)
	s := decodeBody[session.Session](t, resp)
	assert.Empty(t, s.Questions)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errs.ErrKindInvalidInput))
	assert.Equal(t, http.StatusNotFound, statusFor(errs.ErrKindNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(errs.ErrKindDuplicateName))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errs.ErrKindParseFailure))
	assert.Equal(t, http.StatusBadGateway, statusFor(errs.ErrKindCompletionService))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.ErrKindStorage))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.ErrKindMissingCredential))
}
