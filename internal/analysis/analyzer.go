package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StrategyLab/internal/allocation"
	"StrategyLab/internal/backtest"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/metrics"
	"StrategyLab/internal/model"
	"StrategyLab/internal/performance"
	"StrategyLab/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoValidTickers means every ticker in a portfolio request failed.
var ErrNoValidTickers = errors.New("no valid data for any of the tickers")

// PortfolioResult is one completed multi-ticker run.
type PortfolioResult struct {
	RunID       string
	Request     PortfolioRequest
	Allocation  *model.AllocationResult
	Diagnostics []model.TickerDiagnostic
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Sink receives every successful portfolio run (recorder, publisher, ...).
type Sink interface {
	HandleRun(ctx context.Context, res *PortfolioResult) error
}

// Analyzer runs ticker pipelines against a price data source.
type Analyzer struct {
	Fetcher collector.Fetcher
	Workers int
	Sinks   []Sink
}

// NewAnalyzer creates an Analyzer. workers bounds concurrent ticker pipelines.
func NewAnalyzer(fetcher collector.Fetcher, workers int, sinks ...Sink) *Analyzer {
	if workers <= 0 {
		workers = 4
	}
	return &Analyzer{Fetcher: fetcher, Workers: workers, Sinks: sinks}
}

// Evaluate runs signal generation, simulation and scoring over an in-memory
// series. It performs no I/O.
func Evaluate(series *model.PriceSeries, params strategy.Params, opts backtest.Options, riskFreeRate float64) (*model.TickerResult, error) {
	signals, err := strategy.GenerateSignals(series, params)
	if err != nil {
		return nil, err
	}
	curve, err := backtest.Simulate(signals, opts)
	if err != nil {
		return nil, err
	}
	report, trips := performance.Analyze(curve, signals, riskFreeRate)
	return &model.TickerResult{
		Ticker:  series.Symbol,
		Prices:  series,
		Signals: signals,
		Equity:  curve,
		Report:  report,
		Trades:  trips,
	}, nil
}

// RunTicker fetches one ticker and evaluates it. Errors propagate unchanged.
func (a *Analyzer) RunTicker(ctx context.Context, req Request) (*model.TickerResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := a.runTicker(ctx, req)
	if err != nil {
		metrics.TickerRunsTotal.WithLabelValues(string(Diagnose(err))).Inc()
		return nil, err
	}
	metrics.TickerRunsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (a *Analyzer) runTicker(ctx context.Context, req Request) (*model.TickerResult, error) {
	fetchStart := time.Now()
	series, err := a.Fetcher.FetchHistory(ctx, req.Ticker, req.Start, req.End, req.Interval)
	metrics.PipelineDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", collector.ErrDataUnavailable, req.Ticker)
	}
	if series.Symbol == "" {
		series.Symbol = req.Ticker
	}

	evalStart := time.Now()
	res, err := Evaluate(series, req.Strategy, req.Backtest, req.RiskFreeRate)
	metrics.PipelineDuration.WithLabelValues("evaluate").Observe(time.Since(evalStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Ticker, err)
	}
	res.Ticker = req.Ticker
	return res, nil
}

// RunPortfolio evaluates every ticker concurrently, excludes failures as
// diagnostics and allocates capital across the survivors. It fails only when
// the request is invalid or no ticker succeeds.
func (a *Analyzer) RunPortfolio(ctx context.Context, req PortfolioRequest) (*PortfolioResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tickers := NormalizeTickers(req.Tickers)
	started := time.Now()

	results := make([]*model.TickerResult, len(tickers))
	var (
		mu    sync.Mutex
		diags []model.TickerDiagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			res, err := a.RunTicker(gctx, req.tickerRequest(ticker))
			if err != nil {
				log.Warn().Err(err).Str("ticker", ticker).Msg("ticker excluded from portfolio")
				mu.Lock()
				diags = append(diags, model.TickerDiagnostic{Ticker: ticker, Kind: Diagnose(err), Message: err.Error()})
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ok := make([]*model.TickerResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("%w (%d failed)", ErrNoValidTickers, len(diags))
	}

	opts := req.Allocation
	opts.NotionalCapital = req.tickerOptions().InitialCapital
	alloc, err := allocation.Allocate(ok, opts)
	if err != nil {
		return nil, err
	}

	res := &PortfolioResult{
		RunID:       uuid.NewString(),
		Request:     req,
		Allocation:  alloc,
		Diagnostics: sortDiagnostics(tickers, diags),
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	metrics.PortfolioRunsTotal.Inc()
	metrics.LastPortfolioReturn.Set(alloc.TotalReturnPct)
	log.Info().Str("run_id", res.RunID).Int("tickers", len(ok)).Int("excluded", len(diags)).
		Float64("total_return_pct", alloc.TotalReturnPct).Msg("portfolio run complete")

	for _, s := range a.Sinks {
		if err := s.HandleRun(ctx, res); err != nil {
			log.Error().Err(err).Str("run_id", res.RunID).Msg("portfolio sink failed")
		}
	}
	return res, nil
}

// Diagnose classifies a ticker failure.
func Diagnose(err error) model.DiagnosticKind {
	switch {
	case errors.Is(err, collector.ErrDataUnavailable):
		return model.DiagDataUnavailable
	case errors.Is(err, strategy.ErrInsufficientData):
		return model.DiagInsufficientData
	case errors.Is(err, strategy.ErrInvalidParameter):
		return model.DiagInvalidParameter
	default:
		return model.DiagInternal
	}
}

// sortDiagnostics restores request order, since workers finish in any order.
func sortDiagnostics(tickers []string, diags []model.TickerDiagnostic) []model.TickerDiagnostic {
	byTicker := make(map[string]model.TickerDiagnostic, len(diags))
	for _, d := range diags {
		byTicker[d.Ticker] = d
	}
	out := make([]model.TickerDiagnostic, 0, len(diags))
	for _, t := range tickers {
		if d, ok := byTicker[t]; ok {
			out = append(out, d)
		}
	}
	return out
}
