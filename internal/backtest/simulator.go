package backtest

import (
	"math"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"

	"github.com/rs/zerolog/log"
)

// Options configures a single-asset replay.
type Options struct {
	InitialCapital float64
	// StopLossPct is a fraction (0.1 = 10%). Zero disables the stop.
	StopLossPct float64
}

// Validate rejects options that would make the ledger meaningless.
func (o Options) Validate() error {
	if !(o.InitialCapital > 0) {
		return strategy.InvalidParameter("initial capital must be positive, got %v", o.InitialCapital)
	}
	if o.StopLossPct < 0 || o.StopLossPct >= 1 {
		return strategy.InvalidParameter("stop loss must be in [0, 1), got %v", o.StopLossPct)
	}
	return nil
}

// ledger is the cash/position state walked bar by bar. The strategy is
// always fully in or fully out.
type ledger struct {
	cash       float64
	units      float64
	entryPrice float64
}

func (l *ledger) long() bool { return l.units > 0 }

func (l *ledger) buy(price float64) float64 {
	units := l.cash / price
	l.units = units
	l.cash = 0
	l.entryPrice = price
	return units
}

func (l *ledger) sell(price float64) float64 {
	units := l.units
	l.cash = units * price
	l.units = 0
	l.entryPrice = 0
	return units
}

func (l *ledger) stopHit(price, stopLossPct float64) bool {
	return stopLossPct > 0 && l.long() && price < l.entryPrice*(1-stopLossPct)
}

// Simulate replays the signal series through an all-in/all-out ledger and
// returns the per-bar equity curve. Processing is a single forward pass; a
// bar only ever sees its own price.
func Simulate(signals *model.SignalSeries, opts Options) (*model.EquityCurve, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if signals == nil || signals.Len() == 0 {
		return nil, strategy.InvalidParameter("empty signal series")
	}
	for i, sp := range signals.Points {
		if !(sp.Price > 0) {
			return nil, strategy.InvalidParameter("bar %d: price must be positive, got %v", i, sp.Price)
		}
		if i > 0 && !sp.Date.After(signals.Points[i-1].Date) {
			return nil, strategy.InvalidParameter("bar %d: dates must be strictly increasing", i)
		}
	}

	curve := &model.EquityCurve{
		Symbol:         signals.Symbol,
		InitialCapital: opts.InitialCapital,
		Points:         make([]model.EquityPoint, signals.Len()),
	}
	l := ledger{cash: opts.InitialCapital}

	for i, sp := range signals.Points {
		price := sp.Price
		switch {
		case sp.PositionChange == model.Enter && !l.long():
			units := l.buy(price)
			curve.Fills = append(curve.Fills, model.Fill{Date: sp.Date, Side: model.Buy, Price: price, Units: units, Reason: model.ReasonSignal})
		case sp.PositionChange == model.Exit && l.long():
			units := l.sell(price)
			curve.Fills = append(curve.Fills, model.Fill{Date: sp.Date, Side: model.Sell, Price: price, Units: units, Reason: model.ReasonSignal})
		case sp.PositionChange == model.Hold && l.stopHit(price, opts.StopLossPct):
			entry := l.entryPrice
			units := l.sell(price)
			curve.Fills = append(curve.Fills, model.Fill{Date: sp.Date, Side: model.Sell, Price: price, Units: units, Reason: model.ReasonStopLoss})
			curve.StopLossExits++
			log.Debug().Str("symbol", signals.Symbol).Str("date", sp.Date.Format(model.DateLayout)).
				Float64("price", price).Float64("entry", entry).Msg("stop-loss triggered")
		}

		holdings := l.units * price
		pt := model.EquityPoint{
			Date:     sp.Date,
			Price:    price,
			Cash:     l.cash,
			Units:    l.units,
			Holdings: holdings,
			Total:    l.cash + holdings,
			Return:   math.NaN(),
		}
		if i > 0 {
			prev := curve.Points[i-1].Total
			pt.Return = pt.Total/prev - 1
		}
		curve.Points[i] = pt
	}
	return curve, nil
}
