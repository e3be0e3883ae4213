package server

import (
	"strings"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/config"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

// strategyFields are the strategy knobs shared by both endpoints.
type strategyFields struct {
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	ShortWindow *int     `json:"short_window"`
	LongWindow  *int     `json:"long_window"`
	UseRSI      *bool    `json:"use_rsi"`
	StopLossPct *float64 `json:"stop_loss_pct"`
}

func (f strategyFields) dates() (time.Time, time.Time, error) {
	start, err := time.Parse(model.DateLayout, f.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, strategy.InvalidParameter("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(model.DateLayout, f.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, strategy.InvalidParameter("end_date must be YYYY-MM-DD")
	}
	return start, end, nil
}

func (f strategyFields) params(cfg *config.Config) strategy.Params {
	p := cfg.StrategyParams()
	if f.ShortWindow != nil {
		p.ShortWindow = *f.ShortWindow
	}
	if f.LongWindow != nil {
		p.LongWindow = *f.LongWindow
	}
	if f.UseRSI != nil {
		p.UseRSIFilter = *f.UseRSI
	}
	return p
}

func (f strategyFields) stopLoss(cfg *config.Config) float64 {
	if f.StopLossPct != nil {
		return *f.StopLossPct
	}
	return cfg.Backtest.StopLossPct
}

type backtestBody struct {
	strategyFields
	Ticker         string   `json:"ticker" binding:"required"`
	InitialCapital *float64 `json:"initial_capital"`
}

func (b backtestBody) toRequest(cfg *config.Config) (analysis.Request, error) {
	start, end, err := b.dates()
	if err != nil {
		return analysis.Request{}, err
	}
	opts := cfg.BacktestOptions()
	opts.StopLossPct = b.stopLoss(cfg)
	if b.InitialCapital != nil {
		opts.InitialCapital = *b.InitialCapital
	}
	return analysis.Request{
		Ticker:       strings.ToUpper(strings.TrimSpace(b.Ticker)),
		Start:        start,
		End:          end,
		Interval:     "1d",
		Strategy:     b.params(cfg),
		Backtest:     opts,
		RiskFreeRate: cfg.Backtest.RiskFreeRate,
	}, nil
}

type portfolioBody struct {
	strategyFields
	Tickers         []string `json:"tickers"`
	Capital         *float64 `json:"capital"`
	SmartAllocation *bool    `json:"smart_allocation"`
	GapPolicy       string   `json:"gap_policy"`
}

func (b portfolioBody) toRequest(cfg *config.Config) (analysis.PortfolioRequest, error) {
	start, end, err := b.dates()
	if err != nil {
		return analysis.PortfolioRequest{}, err
	}
	alloc := cfg.AllocationOptions()
	if b.Capital != nil {
		alloc.TotalCapital = *b.Capital
	}
	if b.SmartAllocation != nil {
		alloc.Smart = *b.SmartAllocation
	}
	if b.GapPolicy != "" {
		alloc.GapPolicy = model.GapPolicy(b.GapPolicy)
		if !alloc.GapPolicy.Valid() {
			return analysis.PortfolioRequest{}, strategy.InvalidParameter("unknown gap_policy %q", b.GapPolicy)
		}
	}
	return analysis.PortfolioRequest{
		Tickers:      b.Tickers,
		Start:        start,
		End:          end,
		Interval:     "1d",
		Strategy:     b.params(cfg),
		StopLossPct:  b.stopLoss(cfg),
		RiskFreeRate: cfg.Backtest.RiskFreeRate,
		Allocation:   alloc,
	}, nil
}
