package universe

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/pkg/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	failures map[string]bool
	calls    int
	inFlight int
	maxSeen  int
}

func (f *fakeSource) Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error) {
	return []string{"A", "B"}, nil
}

func (f *fakeSource) Quote(ctx context.Context, symbol string) (float64, error) {
	return 100, nil
}

func (f *fakeSource) Metric(ctx context.Context, symbol string) (domain.StockMetric, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failures[symbol] {
		return domain.StockMetric{}, errors.New("upstream says no")
	}
	return domain.StockMetric{Symbol: symbol, EarningsYield: 0.1, ReturnOnCapital: 0.1}, nil
}

func TestMetrics_FailureIsolation(t *testing.T) {
	source := &fakeSource{failures: map[string]bool{"BAD": true}}
	fetcher := NewFetcher(source, 2, 1000, logger.New(logger.Config{Level: "error"}))

	metrics, err := fetcher.Metrics(context.Background(), []string{"A", "BAD", "C"})
	require.NoError(t, err)

	require.Len(t, metrics, 2)
	assert.Equal(t, "A", metrics[0].Symbol)
	assert.Equal(t, "C", metrics[1].Symbol)
	assert.Equal(t, 3, source.calls)
}

func TestMetrics_PreservesInputOrder(t *testing.T) {
	source := &fakeSource{}
	fetcher := NewFetcher(source, 3, 1000, logger.New(logger.Config{Level: "error"}))

	symbols := []string{"E", "D", "C", "B", "A"}
	metrics, err := fetcher.Metrics(context.Background(), symbols)
	require.NoError(t, err)

	require.Len(t, metrics, 5)
	for i, symbol := range symbols {
		assert.Equal(t, symbol, metrics[i].Symbol)
	}
}

func TestMetrics_BoundedConcurrency(t *testing.T) {
	source := &fakeSource{}
	fetcher := NewFetcher(source, 2, 1000, logger.New(logger.Config{Level: "error"}))

	_, err := fetcher.Metrics(context.Background(), []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)

	assert.LessOrEqual(t, source.maxSeen, 2)
}

func TestMetrics_CancelledContext(t *testing.T) {
	source := &fakeSource{}
	fetcher := NewFetcher(source, 2, 1000, logger.New(logger.Config{Level: "error"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Metrics(ctx, []string{"A", "B"})
	assert.Error(t, err)
}
