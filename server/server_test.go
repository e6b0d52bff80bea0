package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart_interpreter/history"
	"chart_interpreter/interpreter"
	"chart_interpreter/session"
)

type stubLLM struct {
	reply string
	err   error
}

func (s stubLLM) Complete(context.Context, interpreter.Request) (string, error) {
	return s.reply, s.err
}

var testNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, llm interpreter.LLMClient, opts Options) (http.Handler, *history.Store) {
	t.Helper()
	interp, err := interpreter.New(llm)
	require.NoError(t, err)
	store := history.NewStore(history.NewMemoryKV(0))
	opts.Now = func() time.Time { return testNow }
	srv, err := New(interp, store, opts)
	require.NoError(t, err)
	return srv.Routes(), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[sessionResp](t, rec)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, session.Idle, resp.State)
	return resp.ID
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, history.NewStore(history.NewMemoryKV(0)), Options{})
	assert.Error(t, err)
	interp, err := interpreter.New(stubLLM{})
	require.NoError(t, err)
	_, err = New(interp, nil, Options{})
	assert.Error(t, err)
}

func TestAnalyze_SuccessRendersAndRecordsHistory(t *testing.T) {
	h, store := newTestServer(t, stubLLM{reply: "# 結論\n**大吉**"}, Options{})
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "明日面試是否順利？", IsNow: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[sessionResp](t, rec)
	assert.Equal(t, session.Success, resp.State)
	assert.Contains(t, resp.HTML, ">結論</h3>")
	assert.Contains(t, resp.HTML, ">大吉</strong>")

	assert.Len(t, store.Records(context.Background()), 1)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Success, decode[sessionResp](t, rec).State)
}

func TestAnalyze_FailureReturnsFixedMessage(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{err: errors.New("googleapi: Error 403: API key not valid")}, Options{})
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "403")

	var body struct {
		Error   string      `json:"error"`
		Session sessionResp `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, interpreter.FailureMessage, body.Error)
	assert.Equal(t, session.Error, body.Session.State)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Idle, decode[sessionResp](t, rec).State)
}

// gatedLLM blocks until release is closed, then fails.
type gatedLLM struct {
	started chan struct{}
	release chan struct{}
}

func (g gatedLLM) Complete(context.Context, interpreter.Request) (string, error) {
	close(g.started)
	<-g.release
	return "", errors.New("upstream reset")
}

func TestAnalyze_SupersededFailureStillCarriesMessage(t *testing.T) {
	llm := gatedLLM{started: make(chan struct{}), release: make(chan struct{})}
	h, _ := newTestServer(t, llm, Options{})
	id := createSession(t, h)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	}()
	<-llm.started

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	close(llm.release)

	rec = <-done
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		Error   string      `json:"error"`
		Session sessionResp `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, interpreter.FailureMessage, body.Error)
	assert.Equal(t, session.Idle, body.Session.State)
}

func TestAnalyze_BadRequests(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{reply: "ok"}, Options{})
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/unknown/analyze", interpreter.UserInput{Question: "q"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_RateLimited(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{reply: "ok"}, Options{RatePerMinute: 1, RateBurst: 1})
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDraftSelectAndHistoryRoutes(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{reply: "ok"}, Options{})
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/drafts", interpreter.UserInput{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/drafts", interpreter.UserInput{Question: "問", ChartText: "盤"})
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[struct {
		Record history.Record `json:"record"`
	}](t, rec).Record

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/select/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[sessionResp](t, rec)
	assert.True(t, snap.IsDraft)
	assert.Equal(t, "盤", snap.Form.ChartText)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/select/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Records []history.Record `json:"records"`
	}](t, rec).Records
	require.Len(t, list, 1)

	rec = do(t, h, http.MethodDelete, "/api/history/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"records":[]`)

	do(t, h, http.MethodPost, "/api/sessions/"+id+"/drafts", interpreter.UserInput{Question: "again"})
	rec = do(t, h, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/history", nil)
	assert.Contains(t, rec.Body.String(), `"records":[]`)
}

func TestExport(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{reply: "# 結論\n- **守**"}, Options{})
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/export.html", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/export.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Consult_Report_2026-10-19.html"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
	assert.Contains(t, rec.Body.String(), `<strong class="ex-strong">守</strong>`)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/export.pdf", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), msgPDFFailed)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, session.Success, decode[sessionResp](t, rec).State)
}

func TestRenderMetricsAndStatic(t *testing.T) {
	h, _ := newTestServer(t, stubLLM{reply: "ok"}, Options{})

	rec := do(t, h, http.MethodPost, "/api/render", renderReq{Text: "# 一", Variant: "export"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ex-heading ex-first")

	id := createSession(t, h)
	do(t, h, http.MethodPost, "/api/sessions/"+id+"/analyze", interpreter.UserInput{Question: "q"})
	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `interpreter_analyses_total{outcome="success"} 1`)

	rec = do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "命理預測解盤師")

	rec = do(t, h, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
