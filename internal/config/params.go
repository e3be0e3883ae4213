package config

import (
	"time"

	"StrategyLab/internal/allocation"
	"StrategyLab/internal/analysis"
	"StrategyLab/internal/backtest"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

// StrategyParams maps the strategy section onto engine parameters.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		ShortWindow:   c.Strategy.ShortWindow,
		LongWindow:    c.Strategy.LongWindow,
		UseRSIFilter:  c.Strategy.UseRSIFilter != nil && *c.Strategy.UseRSIFilter,
		RSIPeriod:     c.Strategy.RSIPeriod,
		RSIOversold:   c.Strategy.RSIOversold,
		RSIOverbought: c.Strategy.RSIOverbought,
	}
}

// BacktestOptions maps the backtest section onto ledger options.
func (c *Config) BacktestOptions() backtest.Options {
	return backtest.Options{
		InitialCapital: c.Backtest.InitialCapital,
		StopLossPct:    c.Backtest.StopLossPct,
	}
}

// AllocationOptions maps the portfolio section onto allocation options.
func (c *Config) AllocationOptions() allocation.Options {
	return allocation.Options{
		TotalCapital:    c.Portfolio.TotalCapital,
		NotionalCapital: c.Portfolio.NotionalCapital,
		Smart:           c.Portfolio.SmartAllocation != nil && *c.Portfolio.SmartAllocation,
		FloorEpsilon:    c.Portfolio.FloorEpsilon,
		GapPolicy:       c.Portfolio.GapPolicy,
	}
}

// WatchlistRequest builds the scheduled portfolio request ending at now.
func (c *Config) WatchlistRequest(now time.Time) analysis.PortfolioRequest {
	end := model.TruncateToDate(now)
	return analysis.PortfolioRequest{
		Tickers:      c.Portfolio.Tickers,
		Start:        end.AddDate(0, 0, -c.Portfolio.LookbackDays),
		End:          end,
		Interval:     "1d",
		Strategy:     c.StrategyParams(),
		StopLossPct:  c.Backtest.StopLossPct,
		RiskFreeRate: c.Backtest.RiskFreeRate,
		Allocation:   c.AllocationOptions(),
	}
}

// TickerRequest builds a single-ticker backtest over the same lookback window.
func (c *Config) TickerRequest(ticker string, now time.Time) analysis.Request {
	end := model.TruncateToDate(now)
	return analysis.Request{
		Ticker:       ticker,
		Start:        end.AddDate(0, 0, -c.Portfolio.LookbackDays),
		End:          end,
		Interval:     "1d",
		Strategy:     c.StrategyParams(),
		Backtest:     c.BacktestOptions(),
		RiskFreeRate: c.Backtest.RiskFreeRate,
	}
}
