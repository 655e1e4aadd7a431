package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/allocation"
	"github.com/aristath/formula-trader/internal/config"
	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/internal/metrics"
	"github.com/aristath/formula-trader/internal/ranking"
	"github.com/aristath/formula-trader/pkg/formulas"
)

// BuyCycleService runs one buy pass: screen the universe, rank it by
// the combined factor score, size an equal-weight batch of the top
// names and buy them one at a time.
//
// Orders are placed strictly sequentially. Allocation is computed once
// from the account snapshot, but a running cash reservation is kept
// and re-checked before every order so drifted prices cannot overspend
// the cash the snapshot reported.
type BuyCycleService struct {
	feed     DataFeed
	broker   BrokerGateway
	ledger   Ledger
	notifier Notifier
	locks    RunLocker
	strategy config.Strategy
	log      zerolog.Logger
	now      func() time.Time
}

// NewBuyCycleService creates a new buy cycle service
func NewBuyCycleService(
	feed DataFeed,
	broker BrokerGateway,
	ledger Ledger,
	notifier Notifier,
	locks RunLocker,
	strategy config.Strategy,
	log zerolog.Logger,
) *BuyCycleService {
	return &BuyCycleService{
		feed:     feed,
		broker:   broker,
		ledger:   ledger,
		notifier: notifier,
		locks:    locks,
		strategy: strategy,
		log:      log.With().Str("service", "buy_cycle").Logger(),
		now:      time.Now,
	}
}

// Run executes one buy cycle and always returns a summary alongside
// any cycle-level error. Per-symbol failures never abort the cycle.
func (s *BuyCycleService) Run(ctx context.Context) (CycleSummary, error) {
	summary := CycleSummary{Cycle: "buy"}
	startedAt := s.now()

	token, err := s.locks.Acquire("buy_cycle", startedAt)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("buy", "locked").Inc()
		return summary, err
	}

	completed := false
	defer func() {
		// Keep the lock row on success as an idempotency record; a
		// failed run releases it so a retry the same day can proceed.
		if !completed {
			if err := s.locks.Release("buy_cycle", startedAt, token); err != nil {
				s.log.Error().Err(err).Msg("Failed to release run lock")
			}
		}
	}()

	batch, err := s.selectBatch(ctx)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("buy", "error").Inc()
		return summary, err
	}

	account, err := s.broker.Account(ctx)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("buy", "error").Inc()
		return summary, fmt.Errorf("failed to fetch account snapshot: %w", err)
	}

	prices := s.fetchQuotes(ctx, batch, &summary)

	quantities, err := allocation.Allocate(account, s.strategy.BatchSize, s.strategy.MaxInvestmentPercent, prices)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("buy", "error").Inc()
		return summary, fmt.Errorf("allocation failed: %w", err)
	}

	s.placeOrders(ctx, batch, prices, quantities, account.Cash, &summary)

	completed = true
	metrics.CyclesRun.WithLabelValues("buy", "ok").Inc()
	s.log.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", s.now().Sub(startedAt)).
		Msg(summary.String())

	return summary, nil
}

// selectBatch screens the universe, ranks it and returns the top names.
func (s *BuyCycleService) selectBatch(ctx context.Context) ([]domain.StockMetric, error) {
	symbols, err := s.feed.Screen(ctx, s.strategy.Exchange, s.strategy.MinMarketCap)
	if err != nil {
		return nil, fmt.Errorf("%w: screen: %v", domain.ErrDataFetch, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: screen returned no symbols", domain.ErrDataFetch)
	}

	universe, err := s.feed.Metrics(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics: %v", domain.ErrDataFetch, err)
	}

	ranked, err := ranking.Rank(universe)
	if err != nil {
		return nil, err
	}

	batch := ranked
	if len(batch) > s.strategy.BatchSize {
		batch = batch[:s.strategy.BatchSize]
	}

	s.log.Info().
		Int("universe", len(universe)).
		Int("batch", len(batch)).
		Float64("mean_earnings_yield", formulas.Mean(earningsYields(batch))).
		Float64("earnings_yield_stddev", formulas.StdDev(earningsYields(batch))).
		Msg("Batch selected")

	return batch, nil
}

// fetchQuotes looks up current prices for the batch. A symbol whose
// quote fails is excluded and counted as skipped.
func (s *BuyCycleService) fetchQuotes(ctx context.Context, batch []domain.StockMetric, summary *CycleSummary) map[string]float64 {
	prices := make(map[string]float64, len(batch))
	for _, m := range batch {
		price, err := s.feed.Quote(ctx, m.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", m.Symbol).Msg("Quote unavailable, skipping symbol")
			metrics.SymbolsSkipped.WithLabelValues("no_quote").Inc()
			summary.Skipped++
			continue
		}
		prices[m.Symbol] = price
	}
	return prices
}

// placeOrders buys the batch one symbol at a time in rank order.
func (s *BuyCycleService) placeOrders(
	ctx context.Context,
	batch []domain.StockMetric,
	prices map[string]float64,
	quantities map[string]int64,
	availableCash float64,
	summary *CycleSummary,
) {
	summary.Attempted = len(batch)
	remainingCash := availableCash

	for _, m := range batch {
		// A confirmed symbol stays committed even when the cycle is
		// interrupted between symbols; there is no rollback.
		if ctx.Err() != nil {
			s.log.Warn().Err(ctx.Err()).Msg("Buy cycle interrupted between symbols")
			return
		}

		price, ok := prices[m.Symbol]
		if !ok {
			continue // already counted by fetchQuotes
		}

		quantity, ok := quantities[m.Symbol]
		if !ok {
			s.log.Debug().Str("symbol", m.Symbol).Msg("Budget buys zero shares, skipping")
			metrics.SymbolsSkipped.WithLabelValues("zero_quantity").Inc()
			summary.Skipped++
			continue
		}

		estimatedCost := float64(quantity) * price
		if estimatedCost > remainingCash {
			s.log.Warn().
				Str("symbol", m.Symbol).
				Float64("cost", estimatedCost).
				Float64("remaining_cash", remainingCash).
				Msg("Order would exceed remaining cash, skipping")
			metrics.SymbolsSkipped.WithLabelValues("insufficient_cash").Inc()
			summary.Skipped++
			continue
		}

		confirmation, err := s.broker.SubmitOrder(ctx, m.Symbol, quantity, domain.SideBuy)
		if err != nil {
			// Never retried: the order may already have been accepted.
			s.log.Error().Err(err).Str("symbol", m.Symbol).Msg("Buy order failed")
			metrics.OrdersFailed.WithLabelValues("BUY").Inc()
			summary.Failed++
			continue
		}

		remainingCash -= float64(confirmation.Quantity) * confirmation.Price
		s.recordBuy(confirmation)
		metrics.OrdersPlaced.WithLabelValues("BUY").Inc()
		summary.Succeeded++
	}
}

// recordBuy persists the confirmed order and notifies. Ledger failures
// after a confirmed order are logged, not fatal: the trade happened,
// only the bookkeeping is behind.
func (s *BuyCycleService) recordBuy(confirmation *domain.OrderConfirmation) {
	executedAt := s.now()

	err := s.ledger.RecordTransaction(domain.Transaction{
		Symbol:     confirmation.Symbol,
		Side:       domain.SideBuy,
		Quantity:   confirmation.Quantity,
		Price:      confirmation.Price,
		ExecutedAt: executedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("symbol", confirmation.Symbol).Msg("Order confirmed but transaction write failed")
	}

	err = s.ledger.InsertHolding(domain.Holding{
		Symbol:           confirmation.Symbol,
		Quantity:         confirmation.Quantity,
		AcquisitionDate:  executedAt,
		AcquisitionPrice: confirmation.Price,
		Status:           domain.HoldingActive,
	})
	if err != nil {
		s.log.Error().Err(err).Str("symbol", confirmation.Symbol).Msg("Order confirmed but holding write failed")
	}

	s.notifier.Notify(domain.TradeEvent{
		Kind:     domain.SideBuy,
		Symbol:   confirmation.Symbol,
		Quantity: confirmation.Quantity,
		Price:    confirmation.Price,
	})
}

func earningsYields(batch []domain.StockMetric) []float64 {
	yields := make([]float64, len(batch))
	for i, m := range batch {
		yields[i] = m.EarningsYield
	}
	return yields
}
