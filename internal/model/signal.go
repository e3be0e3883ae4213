package model

import "time"

// PositionChange is a discrete trade decision for one bar.
type PositionChange int

const (
	Exit  PositionChange = -1
	Hold  PositionChange = 0
	Enter PositionChange = 1
)

// SignalPoint annotates one bar with indicators and the trade decision.
type SignalPoint struct {
	Date           time.Time
	Price          float64 // adjusted close
	ShortMA        float64
	LongMA         float64
	RSI            float64 // NaN during warm-up or when undefined
	TrendSignal    int     // 0 or 1
	RawChange      PositionChange
	PositionChange PositionChange
}

// SignalSeries is aligned one-to-one with the source PriceSeries.
type SignalSeries struct {
	Symbol      string
	ShortWindow int
	LongWindow  int
	Points      []SignalPoint
}

// Len returns the number of points.
func (s *SignalSeries) Len() int { return len(s.Points) }

// Events returns the indices of bars with a non-zero position change, in date order.
func (s *SignalSeries) Events() []int {
	var idx []int
	for i, p := range s.Points {
		if p.PositionChange != Hold {
			idx = append(idx, i)
		}
	}
	return idx
}

// Count returns how many bars carry the given change.
func (s *SignalSeries) Count(c PositionChange) int {
	n := 0
	for _, p := range s.Points {
		if p.PositionChange == c {
			n++
		}
	}
	return n
}
