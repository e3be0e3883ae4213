package recorder

import (
	"context"
	"math"
	"strings"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/model"
)

// AllocationRow is the persisted per-ticker outcome of a run.
type AllocationRow struct {
	Ticker           string
	AllocatedCapital float64
	WeightPct        float64
	Profit           float64
	ReturnPct        float64
	SharpeRatio      float64
	MaxDrawdownPct   float64
	WinRatePct       float64
	TotalTrades      int
}

// RunRecord holds everything stored for one portfolio run.
type RunRecord struct {
	RunID          string
	CreatedAt      time.Time
	Tickers        []string
	TotalCapital   float64
	Smart          bool
	GapPolicy      model.GapPolicy
	TotalProfit    float64
	TotalReturnPct float64
	Allocations    []AllocationRow
	Diagnostics    []model.TickerDiagnostic
}

// RunSummary is a row of the run history listing.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	Tickers        []string  `json:"tickers"`
	TotalCapital   float64   `json:"total_capital"`
	TotalProfit    float64   `json:"total_profit"`
	TotalReturnPct float64   `json:"total_return_pct"`
	Excluded       int       `json:"excluded"`
}

// Recorder persists portfolio run history.
type Recorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// NewRunRecord flattens a portfolio result for storage.
func NewRunRecord(res *analysis.PortfolioResult) *RunRecord {
	alloc := res.Allocation
	rec := &RunRecord{
		RunID:          res.RunID,
		CreatedAt:      res.FinishedAt,
		TotalCapital:   alloc.TotalCapital,
		Smart:          alloc.Smart,
		GapPolicy:      alloc.GapPolicy,
		TotalProfit:    alloc.TotalProfit,
		TotalReturnPct: alloc.TotalReturnPct,
		Diagnostics:    res.Diagnostics,
	}
	for _, ta := range alloc.Tickers {
		rec.Tickers = append(rec.Tickers, ta.Ticker)
		row := AllocationRow{
			Ticker:           ta.Ticker,
			AllocatedCapital: ta.AllocatedCapital,
			WeightPct:        ta.WeightPct,
			Profit:           ta.Profit,
			ReturnPct:        ta.ReturnPct,
			SharpeRatio:      ta.SharpeRatio,
		}
		if ta.Result != nil {
			row.MaxDrawdownPct = ta.Result.Report.MaxDrawdownPct
			row.WinRatePct = ta.Result.Report.WinRatePct
			row.TotalTrades = ta.Result.Report.TotalTrades
		}
		rec.Allocations = append(rec.Allocations, row)
	}
	return rec
}

type sink struct{ r Recorder }

// AsSink lets a Recorder receive every portfolio run from the analyzer.
func AsSink(r Recorder) analysis.Sink { return sink{r: r} }

func (s sink) HandleRun(ctx context.Context, res *analysis.PortfolioResult) error {
	return s.r.RecordRun(ctx, NewRunRecord(res))
}

// nullable maps NaN/Inf to SQL NULL.
func nullable(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func joinTickers(t []string) string { return strings.Join(t, ",") }

func splitTickers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
