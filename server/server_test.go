package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/content"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/export"
	"github.com/aouyang1/go-disease-tracker/risk"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource map[string]timedataset.Records

func (m memSource) Load(_ context.Context, disease, country string) (timedataset.Records, error) {
	records, ok := m[catalog.SeriesKey(disease, country)]
	if !ok {
		return nil, fmt.Errorf("%s %s, %w", disease, country, source.ErrSeriesNotFound)
	}
	return records.Sorted(), nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailySeries is 60 daily records ending 2024-12-30
func dailySeries(cases, deaths int64) timedataset.Records {
	t := timedataset.GenerateDates(date(2024, 11, 1), 60, 1)
	records := timedataset.GenerateConstY(60, float64(cases)).Records(t)
	for i := range records {
		records[i].Deaths = deaths
	}
	return records
}

func newTestServer(t *testing.T, cfg Config) (*Server, *Metrics) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, content.DiseasesDir), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, content.DiseasesDir, "covid19_info.txt"),
		[]byte("# COVID-19\n\n## Symptoms\n- Fever\n- Cough\n"), 0o644,
	))

	metrics := NewMetrics()
	svc, err := dashboard.NewService(dashboard.Config{
		Source: memSource{
			"covid19_america": dailySeries(100, 2),
			"covid19_canada":  dailySeries(50, 1),
			"diabetes_india":  {{Date: date(2024, 1, 1), Cases: 10, Deaths: 1}},
		},
		Content:  content.NewStore(dir),
		CacheTTL: time.Hour,
		Observer: metrics,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(svc, metrics, cfg, logger), metrics
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestStatusOf(t *testing.T) {
	testData := map[string]struct {
		err      error
		expected int
	}{
		"series not found":  {fmt.Errorf("x, %w", source.ErrSeriesNotFound), http.StatusNotFound},
		"session not found": {chat.ErrSessionNotFound, http.StatusNotFound},
		"unknown disease":   {fmt.Errorf("%q, %w", "flu", catalog.ErrUnknownDisease), http.StatusBadRequest},
		"invalid horizon":   {forecaster.ErrInvalidHorizon, http.StatusBadRequest},
		"invalid risk":      {fmt.Errorf("%w, bad age", risk.ErrInvalidInput), http.StatusBadRequest},
		"unknown format":    {export.ErrUnknownFormat, http.StatusBadRequest},
		"insufficient data": {fmt.Errorf("got 1 records, %w", forecaster.ErrInsufficientData), http.StatusUnprocessableEntity},
		"malformed file":    {&source.ValidationError{File: "a.csv", Line: 2, Err: timedataset.ErrInvalidRecord}, http.StatusUnprocessableEntity},
		"deadline":          {context.DeadlineExceeded, http.StatusGatewayTimeout},
		"unexpected":        {io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, statusOf(td.err))
		})
	}
}

func TestCatalogRoutes(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/diseases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var diseases []catalog.Disease
	decodeBody(t, rec, &diseases)
	assert.Len(t, diseases, 6)

	rec = do(t, s, http.MethodGet, "/api/countries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var countries []catalog.Country
	decodeBody(t, rec, &countries)
	assert.Len(t, countries, 10)

	rec = do(t, s, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeries(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	testData := map[string]struct {
		target string
		code   int
	}{
		"by name":         {"/api/series/COVID-19/America", http.StatusOK},
		"by slug":         {"/api/series/covid19/america", http.StatusOK},
		"unknown disease": {"/api/series/flu/america", http.StatusBadRequest},
		"missing series":  {"/api/series/diabetes/japan", http.StatusNotFound},
		"bad format":      {"/api/series/covid19/america?format=pdf", http.StatusBadRequest},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, td.target, nil)
			assert.Equal(t, td.code, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, s, http.MethodGet, "/api/series/covid19/america", nil)
	var res seriesResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, "COVID-19", res.Disease)
	assert.Equal(t, catalog.Acute, res.Class)
	assert.Equal(t, int64(6000), res.Summary.TotalCases)
	assert.Len(t, res.Records, 60)

	rec = do(t, s, http.MethodGet, "/api/series/covid19/america?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="covid19_america_history_2024-12-30.csv"`, rec.Header().Get("Content-Disposition"))
	records, err := source.ReadCSV("history.csv", rec.Body)
	require.NoError(t, err)
	assert.Equal(t, dailySeries(100, 2), records)
}

func TestCasesOn(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/series/covid19/america/cases?date=2024-12-25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dc dashboard.DailyCases
	decodeBody(t, rec, &dc)
	assert.Equal(t, int64(100), dc.Record.Cases)
	assert.Equal(t, "Christmas Day", dc.Holiday)

	testData := map[string]struct {
		target string
		code   int
	}{
		"missing date":   {"/api/series/covid19/america/cases", http.StatusBadRequest},
		"malformed date": {"/api/series/covid19/america/cases?date=yesterday", http.StatusBadRequest},
		"no record":      {"/api/series/covid19/america/cases?date=2020-01-01", http.StatusNotFound},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, td.target, nil)
			assert.Equal(t, td.code, rec.Code, rec.Body.String())
		})
	}
}

func TestForecast(t *testing.T) {
	s, _ := newTestServer(t, Config{MaxHorizon: 90})

	rec := do(t, s, http.MethodGet, "/api/forecast/covid19/america?horizon=14", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res forecastResponse
	decodeBody(t, rec, &res)
	require.NotNil(t, res.Forecast)
	assert.Len(t, res.Forecast.Points, 14)
	assert.Equal(t, date(2024, 12, 31), res.Forecast.Points[0].Date)
	assert.Empty(t, res.ForecastUnavailable)

	rec = do(t, s, http.MethodGet, "/api/forecast/diabetes/india", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = forecastResponse{}
	decodeBody(t, rec, &res)
	assert.Nil(t, res.Forecast)
	assert.Contains(t, res.ForecastUnavailable, "at least 2 records")

	testData := map[string]struct {
		target string
		code   int
	}{
		"zero horizon":      {"/api/forecast/covid19/america?horizon=0", http.StatusBadRequest},
		"horizon too large": {"/api/forecast/covid19/america?horizon=91", http.StatusBadRequest},
		"not a number":      {"/api/forecast/covid19/america?horizon=soon", http.StatusBadRequest},
		"missing series":    {"/api/forecast/covid19/japan", http.StatusNotFound},
		"export failure":    {"/api/forecast/diabetes/india?format=csv", http.StatusUnprocessableEntity},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, td.target, nil)
			assert.Equal(t, td.code, rec.Code, rec.Body.String())
		})
	}

	rec = do(t, s, http.MethodGet, "/api/forecast/covid19/america?horizon=3&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "covid19_america_forecast_")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,predicted_cases,holiday", lines[0])
	assert.Equal(t, "2024-12-31,100,", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2025-01-01,100,New Year"), lines[2])
	assert.Equal(t, "2025-01-02,100,", lines[3])
}

func TestViewAndCompare(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/view/covid19/america", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v dashboard.View
	decodeBody(t, rec, &v)
	require.NotNil(t, v.Summary)
	require.NotNil(t, v.Forecast)
	assert.Len(t, v.Forecast.Points, dashboard.DefaultHorizon)
	assert.Len(t, v.News, 2)

	rec = do(t, s, http.MethodGet, "/api/view/tuberculosis/japan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = dashboard.View{}
	decodeBody(t, rec, &v)
	assert.Nil(t, v.Summary)
	assert.NotEmpty(t, v.DataUnavailable)

	rec = do(t, s, http.MethodGet, "/api/compare/covid19/america/canada", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp dashboard.Comparison
	decodeBody(t, rec, &cmp)
	assert.Equal(t, int64(3000), cmp.Other.Summary.TotalCases)

	rec = do(t, s, http.MethodGet, "/api/compare/covid19/america/america", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartsAndNews(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/api/charts/covid19/america?compare=canada&horizon=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "COVID-19 Cases Comparison")

	rec = do(t, s, http.MethodGet, "/api/news/covid19/south_korea", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res newsResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, "South Korea", res.Country)
	require.Len(t, res.Links, 2)
	assert.Contains(t, res.Links[0].URL, "COVID-19+South+Korea")
}

func TestChat(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/api/chat", chatRequest{Disease: "covid19", Country: "america", Question: "What are the symptoms?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res chatResponse
	decodeBody(t, rec, &res)
	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, "COVID-19", res.Disease)
	assert.Equal(t, "Common symptoms of COVID-19: Fever; Cough.", res.Reply.Content)
	assert.Equal(t, chat.IntentSymptom, res.Reply.Intent)

	rec = do(t, s, http.MethodPost, "/api/chat", chatRequest{SessionID: res.SessionID, Question: "total cases?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &res)
	assert.Equal(t, "COVID-19 in America has 6,000 total cases and 120 total deaths across 60 records.", res.Reply.Content)

	rec = do(t, s, http.MethodPost, "/api/chat", chatRequest{SessionID: res.SessionID, Disease: "diabetes", Country: "japan", Question: "peak?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &res)
	assert.Equal(t, "Diabetes", res.Disease)
	assert.Equal(t, "Data for Diabetes in Japan is not available yet.", res.Reply.Content)

	rec = do(t, s, http.MethodGet, "/api/chat/"+res.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session chat.Session
	decodeBody(t, rec, &session)
	assert.Len(t, session.Messages, 6)
	assert.Equal(t, chat.RoleUser, session.Messages[0].Role)

	rec = do(t, s, http.MethodDelete, "/api/chat/"+res.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/chat/"+res.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	testData := map[string]struct {
		body interface{}
		code int
	}{
		"empty question":    {chatRequest{Disease: "covid19", Country: "america"}, http.StatusBadRequest},
		"no selection":      {chatRequest{Question: "hello"}, http.StatusBadRequest},
		"unknown session":   {chatRequest{SessionID: "missing", Question: "hello"}, http.StatusNotFound},
		"unknown country":   {chatRequest{Disease: "covid19", Country: "atlantis", Question: "hello"}, http.StatusBadRequest},
		"unknown field":     {map[string]string{"query": "hello"}, http.StatusBadRequest},
		"expired on update": {chatRequest{SessionID: "missing", Disease: "covid19", Country: "america", Question: "hi"}, http.StatusNotFound},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/chat", td.body)
			assert.Equal(t, td.code, rec.Code, rec.Body.String())
		})
	}
}

func TestRisk(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/api/risk", risk.Input{
		Age:         65,
		Symptoms:    []string{"Fever", "Cough"},
		Conditions:  []string{"Diabetes"},
		Vaccination: risk.NotVaccinated,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res riskResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, risk.High, res.Level)
	assert.InDelta(t, 0.85, res.Percent, 1e-12)

	rec = do(t, s, http.MethodPost, "/api/risk", risk.Input{Age: 130, Vaccination: risk.FullyVaccinated})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/risk", strings.NewReader("{"))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 1})

	rec := do(t, s, http.MethodGet, "/api/diseases", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/diseases", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health and metrics are not limited
	rec = do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	do(t, s, http.MethodGet, "/api/forecast/covid19/america", nil)
	do(t, s, http.MethodGet, "/api/forecast/covid19/america", nil)
	do(t, s, http.MethodPost, "/api/chat", chatRequest{Disease: "covid19", Country: "america", Question: "hi"})

	rec := do(t, s, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `disease_tracker_http_requests_total{code="200",method="GET",route="/api/forecast/{disease}/{country}"} 2`)
	assert.Contains(t, body, `disease_tracker_forecasts_total{outcome="ok"} 1`)
	assert.Contains(t, body, "disease_tracker_forecast_cache_hits_total 2")
	assert.Contains(t, body, "disease_tracker_chat_sessions 1")
}

func TestRecoverer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/diseases", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var p Problem
	decodeBody(t, rec, &p)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "/api/diseases", p.Instance)
}

func TestServeShutdown(t *testing.T) {
	s, _ := newTestServer(t, Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
