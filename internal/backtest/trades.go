package backtest

import "StrategyLab/internal/model"

// PairTrades walks the non-zero position changes in date order and pairs each
// entry with the event immediately after it when that event is an exit.
// totalTrades is floor(events/2); a dangling entry is never paired.
//
// Pairing is done on the signal events, not on ledger fills, so a stop-loss
// exit does not close a round trip here.
func PairTrades(signals *model.SignalSeries) (trips []model.RoundTrip, totalTrades int) {
	events := signals.Events()
	for j := 0; j+1 < len(events); j++ {
		a, b := signals.Points[events[j]], signals.Points[events[j+1]]
		if a.PositionChange == model.Enter && b.PositionChange == model.Exit {
			trips = append(trips, model.RoundTrip{
				EntryDate:  a.Date,
				ExitDate:   b.Date,
				EntryPrice: a.Price,
				ExitPrice:  b.Price,
			})
		}
	}
	return trips, len(events) / 2
}
