package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/config"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riseThenFall() []float64 {
	var p []float64
	for i := 0; i < 30; i++ {
		p = append(p, 100)
	}
	for i := 30; i < 50; i++ {
		p = append(p, float64(71+i))
	}
	for j := 0; j < 30; j++ {
		p = append(p, float64(118-2*j))
	}
	return p
}

func steadyRise(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 50 + float64(i)*0.5
	}
	return p
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	fetcher := &collector.MockFetcher{Closes: map[string][]float64{
		"AAA":  riseThenFall(),
		"BBB":  steadyRise(80),
		"TINY": {1, 2, 3},
	}}
	an := analysis.NewAnalyzer(fetcher, 2, recorder.AsSink(rec))
	return New(cfg, an, rec).Router()
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Error
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetrics(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func backtestBodyFor(ticker string) map[string]any {
	return map[string]any{
		"ticker":       ticker,
		"start_date":   "2024-01-01",
		"end_date":     "2024-06-01",
		"short_window": 5,
		"long_window":  20,
		"use_rsi":      false,
	}
}

func TestBacktest_OK(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodPost, "/api/backtest", backtestBodyFor("aaa"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var v report.TickerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "AAA", v.Ticker)
	assert.Len(t, v.Dates, 80)
	require.Len(t, v.Buys, 1)
	require.Len(t, v.Sells, 1)
	assert.Equal(t, 1, v.TotalTrades)
	assert.Equal(t, 100.0, v.WinRatePct)
}

func TestBacktest_Errors(t *testing.T) {
	r := newTestRouter(t)

	missing := backtestBodyFor("AAA")
	delete(missing, "ticker")
	badDate := backtestBodyFor("AAA")
	badDate["start_date"] = "01/01/2024"
	reversed := backtestBodyFor("AAA")
	reversed["start_date"] = "2024-07-01"
	badWindows := backtestBodyFor("AAA")
	badWindows["long_window"] = 3

	cases := map[string]map[string]any{
		"missing ticker":    missing,
		"bad date":          badDate,
		"end before start":  reversed,
		"long < short":      badWindows,
		"unknown symbol":    backtestBodyFor("NOPE"),
		"insufficient data": backtestBodyFor("TINY"),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/backtest", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, errorOf(t, w))
		})
	}
}

func portfolioBodyFor(tickers ...string) map[string]any {
	return map[string]any{
		"tickers":          tickers,
		"capital":          50000,
		"start_date":       "2024-01-01",
		"end_date":         "2024-06-01",
		"short_window":     5,
		"long_window":      20,
		"use_rsi":          false,
		"smart_allocation": false,
	}
}

func TestPortfolio_OKAndRecorded(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/portfolio", portfolioBodyFor("AAA", "BBB", "NOPE"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var v report.PortfolioView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	require.Len(t, v.Stocks, 2)
	assert.Equal(t, 50000.0, v.TotalCapital)
	assert.False(t, v.SmartAllocation)
	assert.InDelta(t, 50, v.Stocks[0].AllocationPct, 1e-9)
	assert.GreaterOrEqual(t, v.Stocks[0].Profit, v.Stocks[1].Profit)
	require.Len(t, v.Excluded, 1)
	assert.Equal(t, "NOPE", v.Excluded[0].Ticker)

	w = do(t, r, http.MethodGet, "/api/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs struct {
		Runs []recorder.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, v.RunID, runs.Runs[0].RunID)
}

func TestPortfolio_Errors(t *testing.T) {
	r := newTestRouter(t)

	zeroCapital := portfolioBodyFor("AAA")
	zeroCapital["capital"] = 0
	badGap := portfolioBodyFor("AAA")
	badGap["gap_policy"] = "bfill"

	cases := map[string]struct {
		body map[string]any
		want string
	}{
		"no tickers":   {portfolioBodyFor(), "no tickers"},
		"zero capital": {zeroCapital, "capital"},
		"gap policy":   {badGap, "gap_policy"},
		"none valid":   {portfolioBodyFor("NOPE", "TINY"), "no valid data"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/portfolio", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorOf(t, w), tc.want)
		})
	}
}

func TestRuns_BadLimit(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newTestRouter(t), http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}
