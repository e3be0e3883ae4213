package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StrategyLab/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols listed in Fail return ErrDataUnavailable.
type MockFetcher struct {
	Closes map[string][]float64
	Fail   map[string]bool
	// Price seeds a gently trending series for symbols without fixed closes.
	Price float64
	Days  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(ctx context.Context, symbol string, start, _ time.Time, _ string) (*model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	symbol = strings.ToUpper(symbol)
	if m.Fail[symbol] {
		return nil, fmt.Errorf("%w: mock failure for %s", ErrDataUnavailable, symbol)
	}
	if closes, ok := m.Closes[symbol]; ok {
		if len(closes) == 0 {
			return nil, fmt.Errorf("%w: no bars for %s", ErrDataUnavailable, symbol)
		}
		return model.NewDailySeries(symbol, start, closes), nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("%w: unknown symbol %s", ErrDataUnavailable, symbol)
	}
	return model.NewDailySeries(symbol, start, generateMockCloses(m.Price, m.Days)), nil
}

func generateMockCloses(basePrice float64, count int) []float64 {
	if count <= 0 {
		count = 250
	}
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = basePrice * (1 + float64(i-count/2)*0.001)
	}
	return closes
}
