package universe

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/formula-trader/internal/domain"
)

// MetricSource is the per-symbol data provider the fetcher fans out
// over. The Yahoo client implements it.
type MetricSource interface {
	Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error)
	Metric(ctx context.Context, symbol string) (domain.StockMetric, error)
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Fetcher retrieves metrics for a whole universe in bounded-size
// concurrent batches, paced by a token-bucket limiter so the upstream
// rate limits are respected. A failed symbol is logged and excluded;
// it never aborts the batch.
//
// The result preserves the input symbol order. The ranker's tie-break
// contract depends on a deterministic input order, so the fetcher must
// not let goroutine scheduling reorder survivors.
type Fetcher struct {
	source      MetricSource
	limiter     *rate.Limiter
	concurrency int
	log         zerolog.Logger
}

// NewFetcher creates a universe fetcher with the given batch width and
// request rate.
func NewFetcher(source MetricSource, concurrency int, ratePerSecond float64, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		source:      source,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), concurrency),
		concurrency: concurrency,
		log:         log.With().Str("component", "universe").Logger(),
	}
}

// Screen delegates to the underlying source.
func (f *Fetcher) Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return f.source.Screen(ctx, exchange, minMarketCap)
}

// Quote delegates to the underlying source, paced by the limiter.
func (f *Fetcher) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return f.source.Quote(ctx, symbol)
}

// Metrics fetches factor metrics for every symbol. Symbols whose fetch
// fails are excluded from the result; survivors keep their input order.
func (f *Fetcher) Metrics(ctx context.Context, symbols []string) ([]domain.StockMetric, error) {
	results := make([]*domain.StockMetric, len(symbols))

	for start := 0; start < len(symbols); start += f.concurrency {
		end := start + f.concurrency
		if end > len(symbols) {
			end = len(symbols)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("universe fetch interrupted: %w", err)
			}

			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				metric, err := f.source.Metric(ctx, symbols[i])
				if err != nil {
					f.log.Warn().Err(err).
						Str("symbol", symbols[i]).
						Msg("Metric fetch failed, excluding symbol")
					return
				}
				results[i] = &metric
			}(i)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("universe fetch interrupted: %w", err)
		}
	}

	metrics := make([]domain.StockMetric, 0, len(symbols))
	for _, m := range results {
		if m != nil {
			metrics = append(metrics, *m)
		}
	}

	f.log.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(metrics)).
		Msg("Universe metrics fetched")

	return metrics, nil
}
