package strategy

import (
	"fmt"

	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// Params configures the moving-average crossover strategy.
type Params struct {
	ShortWindow   int
	LongWindow    int
	UseRSIFilter  bool
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
}

// DefaultParams returns the 20/50 crossover with the RSI filter enabled.
func DefaultParams() Params {
	return Params{
		ShortWindow:   20,
		LongWindow:    50,
		UseRSIFilter:  true,
		RSIPeriod:     14,
		RSIOversold:   35,
		RSIOverbought: 70,
	}
}

// Validate rejects window combinations the strategy cannot evaluate.
func (p Params) Validate() error {
	if p.ShortWindow < 1 {
		return InvalidParameter("short window must be >= 1, got %d", p.ShortWindow)
	}
	if p.LongWindow < p.ShortWindow {
		return InvalidParameter("long window (%d) must be >= short window (%d)", p.LongWindow, p.ShortWindow)
	}
	if p.RSIPeriod < 1 {
		return InvalidParameter("rsi period must be >= 1, got %d", p.RSIPeriod)
	}
	if p.UseRSIFilter && p.RSIOversold > p.RSIOverbought {
		return InvalidParameter("rsi oversold (%.0f) must not exceed overbought (%.0f)", p.RSIOversold, p.RSIOverbought)
	}
	return nil
}

// GenerateSignals annotates a price series with moving averages, RSI and
// discrete position changes. The input is never modified.
func GenerateSignals(series *model.PriceSeries, p Params) (*model.SignalSeries, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if series == nil || series.Len() < p.LongWindow {
		got := 0
		if series != nil {
			got = series.Len()
		}
		return nil, &InsufficientDataError{Need: p.LongWindow, Got: got}
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidParameter, series.Symbol, err)
	}

	prices := series.AdjCloses()
	shortMA, err := calculator.RollingMean(prices, p.ShortWindow)
	if err != nil {
		return nil, err
	}
	longMA, err := calculator.RollingMean(prices, p.LongWindow)
	if err != nil {
		return nil, err
	}
	rsi, err := calculator.RollingRSI(prices, p.RSIPeriod)
	if err != nil {
		return nil, err
	}

	points := make([]model.SignalPoint, len(prices))
	for i, bar := range series.Bars {
		pt := model.SignalPoint{
			Date:    bar.Date,
			Price:   prices[i],
			ShortMA: shortMA[i],
			LongMA:  longMA[i],
			RSI:     rsi[i],
		}
		// No trend reading until the long average has a full window behind it.
		if i >= p.LongWindow && shortMA[i] > longMA[i] {
			pt.TrendSignal = 1
		}
		if i > 0 {
			pt.RawChange = model.PositionChange(pt.TrendSignal - points[i-1].TrendSignal)
		}
		pt.PositionChange = pt.RawChange
		if p.UseRSIFilter {
			pt.PositionChange = applyRSIFilter(pt.RawChange, pt.RSI, p)
		}
		points[i] = pt
	}

	return &model.SignalSeries{
		Symbol:      series.Symbol,
		ShortWindow: p.ShortWindow,
		LongWindow:  p.LongWindow,
		Points:      points,
	}, nil
}

// applyRSIFilter drops entries into overbought markets and exits during
// oversold ones. An undefined RSI never blocks.
func applyRSIFilter(change model.PositionChange, rsi float64, p Params) model.PositionChange {
	switch {
	case change == model.Enter && rsi > p.RSIOverbought:
		return model.Hold
	case change == model.Exit && rsi < p.RSIOversold:
		return model.Hold
	}
	return change
}
