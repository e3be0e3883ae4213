package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StrategyLab/internal/model"
)

// ErrDataUnavailable covers network failures, unknown tickers, malformed
// payloads and empty results.
var ErrDataUnavailable = errors.New("data unavailable")

// Fetcher retrieves historical daily bars for one symbol over [start, end].
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (*model.PriceSeries, error)
	Name() string
}

// New returns the fetcher for a configured provider.
func New(provider, proxyURL string, requestsPerSecond float64) (Fetcher, error) {
	switch provider {
	case "yahoo":
		return NewYahooFetcher(proxyURL, requestsPerSecond), nil
	case "mock":
		return &MockFetcher{Price: 100, Days: 500}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", provider)
	}
}
