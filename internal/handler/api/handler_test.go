package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/usecase"
	xhttp "FxDesk/pkg/http"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	err  error
	reqs []models.AnalyzeRequest
}

func (f *fakeAnalyzer) Info() models.Info {
	return models.Info{
		System:   models.SystemInfo{AccountBalance: 10000, MaxRiskPerTrade: 0.02, PipScale: 10000},
		Workflow: models.WorkflowInfo{NumNodes: 3, NumEdges: 4},
	}
}

func (f *fakeAnalyzer) APIConfigured() bool { return false }

func (f *fakeAnalyzer) Analyze(_ context.Context, req models.AnalyzeRequest, origin string) (models.FinalResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return models.FinalResult{}, f.err
	}
	return models.FinalResult{RunID: "run-1", Subject: "EUR/USD", Decision: models.WaitDecision(origin)}, nil
}

func (f *fakeAnalyzer) Stream(_ context.Context, req models.AnalyzeRequest, _ string, events chan<- models.StreamEvent) (models.FinalResult, error) {
	defer close(events)
	events <- models.StreamEvent{Type: models.EventStart, Data: models.StartEvent{Query: req.Query}}
	if f.err != nil {
		events <- models.StreamEvent{Type: models.EventError, Data: models.ErrorEvent{Error: f.err.Error()}}
		return models.FinalResult{}, f.err
	}
	events <- models.StreamEvent{Type: models.EventQueryParsed, Data: models.QueryParsedEvent{Query: req.Query, Pair: "EUR/USD"}}
	res := models.FinalResult{RunID: "run-1", Subject: "EUR/USD", Decision: models.WaitDecision("ok")}
	events <- models.StreamEvent{Type: models.EventDecision, Data: res.Decision}
	events <- models.StreamEvent{Type: models.EventComplete, Data: res}
	return res, nil
}

type fakeJobs struct {
	states map[string]models.JobState
}

func (f *fakeJobs) Submit(_ context.Context, req models.AnalyzeRequest) (models.JobState, error) {
	if _, err := util.ParsePair(req.Query); err != nil {
		return models.JobState{}, err
	}
	st := models.JobState{JobID: "5f0c4d8e-3a55-4f1e-9a53-8f3f0e8f6b10", Status: models.JobQueued}
	f.states[st.JobID] = st
	return st, nil
}

func (f *fakeJobs) Get(_ context.Context, id string) (models.JobState, error) {
	st, ok := f.states[id]
	if !ok {
		return models.JobState{}, usecase.ErrJobNotFound
	}
	return st, nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newEcho(h *AnalysisHandler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = xhttp.ErrorHandler
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndInfo(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, nil, "2.0.0"))

	rec := do(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"2.0.0","api_configured":false}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 10000.0, info.System.AccountBalance)
	assert.Equal(t, 4, info.Workflow.NumEdges)
}

func TestAnalyze(t *testing.T) {
	svc := &fakeAnalyzer{}
	e := newEcho(NewAnalysisHandler(logger.Nop(), svc, nil, nil, "dev"))

	rec := do(e, http.MethodPost, "/analyze", `{"query":"EUR/USD","account_balance":5000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.FinalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, models.OriginAPI, res.Decision.Reasoning.Summary)
	require.Len(t, svc.reqs, 1)
	require.NotNil(t, svc.reqs[0].AccountBalance)
	assert.Equal(t, 5000.0, *svc.reqs[0].AccountBalance)
}

func TestAnalyzeValidation(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, nil, "dev"))

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing query", `{}`, "ERR_REQUIRED"},
		{"negative balance", `{"query":"EUR/USD","account_balance":-1}`, "ERR_GT"},
		{"risk above one", `{"query":"EUR/USD","max_risk_per_trade":1.5}`, "ERR_LTE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/analyze", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Data []xhttp.ValidationError `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotEmpty(t, body.Data)
			assert.Equal(t, tc.code, body.Data[0].Code)
		})
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{util.ErrUnknownInstrument, http.StatusUnprocessableEntity},
		{usecase.ErrInvalidRunOptions, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{err: tc.err}, nil, nil, "dev"))
		rec := do(e, http.MethodPost, "/analyze", `{"query":"whatever"}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestStreamWritesServerSentEvents(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, nil, "dev"))

	rec := do(e, http.MethodGet, "/analyze/stream?query=eurusd", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	var types []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
	}
	assert.Equal(t, []string{"start", "query_parsed", "decision", "complete"}, types)
	assert.Contains(t, rec.Body.String(), `data: {"query":"eurusd","pair":"EUR/USD"}`)
}

func TestStreamPostEmitsErrorEvent(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{err: util.ErrUnknownInstrument}, nil, nil, "dev"))

	rec := do(e, http.MethodPost, "/analyze/stream", `{"query":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error\ndata: ")
	assert.NotContains(t, rec.Body.String(), "event: complete")
}

func TestWebSocketStreamsEvents(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, nil, "dev"))
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/analyze/ws?query=EUR/USD"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var types []string
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"start", "query_parsed", "decision", "complete"}, types)
}

func TestJobs(t *testing.T) {
	jobs := &fakeJobs{states: map[string]models.JobState{}}
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, jobs, nil, "dev"))

	rec := do(e, http.MethodPost, "/analyze/jobs", `{"query":"gold"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"5f0c4d8e-3a55-4f1e-9a53-8f3f0e8f6b10","status":"queued"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/analyze/jobs/5f0c4d8e-3a55-4f1e-9a53-8f3f0e8f6b10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)

	rec = do(e, http.MethodGet, "/analyze/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/analyze/jobs/00000000-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/analyze/jobs", `{"query":"no pair here"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestJobsDisabled(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, nil, "dev"))
	rec := do(e, http.MethodPost, "/analyze/jobs", `{"query":"gold"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitAppliesToAnalysisRoutesOnly(t *testing.T) {
	e := newEcho(NewAnalysisHandler(logger.Nop(), &fakeAnalyzer{}, nil, denyAll{}, "dev"))

	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/analyze", `{"query":"EUR/USD"}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", "").Code)
}
