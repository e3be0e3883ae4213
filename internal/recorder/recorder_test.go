package recorder

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRebind(t *testing.T) {
	q := "INSERT INTO t (a, b, c) VALUES (?,?,?)"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES ($1,$2,$3)", postgresDialect.rebind(q))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(math.NaN()))
	assert.Nil(t, nullable(math.Inf(1)))
	assert.Equal(t, 1.5, nullable(1.5))
}

func sampleResult(runID string, finished time.Time) *analysis.PortfolioResult {
	return &analysis.PortfolioResult{
		RunID:      runID,
		FinishedAt: finished,
		Allocation: &model.AllocationResult{
			TotalCapital:   100000,
			Smart:          true,
			GapPolicy:      model.GapZero,
			TotalProfit:    2500,
			TotalReturnPct: 2.5,
			Tickers: []model.TickerAllocation{
				{
					Ticker: "AAPL", AllocatedCapital: 60000, WeightPct: 60, Profit: 3000, ReturnPct: 5, SharpeRatio: 1.2,
					Result: &model.TickerResult{Report: model.PerformanceReport{MaxDrawdownPct: -4, WinRatePct: 50, TotalTrades: 2}},
				},
				{Ticker: "MSFT", AllocatedCapital: 40000, WeightPct: 40, Profit: -500, ReturnPct: -1.25, SharpeRatio: math.NaN()},
			},
		},
		Diagnostics: []model.TickerDiagnostic{{Ticker: "ZZZZ", Kind: model.DiagDataUnavailable, Message: "no data"}},
	}
}

func TestNewRunRecord(t *testing.T) {
	rec := NewRunRecord(sampleResult("r1", time.Unix(1700000000, 0)))
	assert.Equal(t, []string{"AAPL", "MSFT"}, rec.Tickers)
	require.Len(t, rec.Allocations, 2)
	assert.Equal(t, 2, rec.Allocations[0].TotalTrades)
	assert.Equal(t, -4.0, rec.Allocations[0].MaxDrawdownPct)
	assert.Equal(t, 0, rec.Allocations[1].TotalTrades)
	assert.Len(t, rec.Diagnostics, 1)
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sub", "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	sink := AsSink(r)
	require.NoError(t, sink.HandleRun(ctx, sampleResult("older", time.Unix(1700000000, 0))))
	require.NoError(t, sink.HandleRun(ctx, sampleResult("newer", time.Unix(1700086400, 0))))

	runs, err := r.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].RunID)
	assert.Equal(t, "older", runs[1].RunID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, runs[0].Tickers)
	assert.InDelta(t, 2500, runs[0].TotalProfit, 1e-9)
	assert.InDelta(t, 2.5, runs[0].TotalReturnPct, 1e-9)
	assert.Equal(t, 1, runs[0].Excluded)

	runs, err = r.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRecorder_DuplicateRunID(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	rec := NewRunRecord(sampleResult("dup", time.Unix(1700000000, 0)))
	require.NoError(t, r.RecordRun(ctx, rec))
	assert.Error(t, r.RecordRun(ctx, rec))

	runs, err := r.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	r, err := Open(ctx, "", "")
	require.NoError(t, err)
	assert.IsType(t, &NoopRecorder{}, r)

	_, err = Open(ctx, "mysql", "x")
	assert.Error(t, err)
}
