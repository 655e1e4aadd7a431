package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/internal/lifecycle"
	"github.com/aristath/formula-trader/internal/metrics"
)

// SellCycleService runs one sell pass over the broker's open
// positions. For each symbol the earliest active lot (FIFO) is looked
// up in the ledger and evaluated against the hold thresholds; a sell
// decision liquidates that lot's entire quantity in one order.
//
// Sold lots are excluded by the ledger's active-status filter, so a
// lot's sell fires exactly once even if the cycle reruns.
type SellCycleService struct {
	feed       DataFeed
	broker     BrokerGateway
	ledger     Ledger
	notifier   Notifier
	locks      RunLocker
	thresholds lifecycle.Thresholds
	log        zerolog.Logger
	now        func() time.Time
}

// NewSellCycleService creates a new sell cycle service
func NewSellCycleService(
	feed DataFeed,
	broker BrokerGateway,
	ledger Ledger,
	notifier Notifier,
	locks RunLocker,
	thresholds lifecycle.Thresholds,
	log zerolog.Logger,
) *SellCycleService {
	return &SellCycleService{
		feed:       feed,
		broker:     broker,
		ledger:     ledger,
		notifier:   notifier,
		locks:      locks,
		thresholds: thresholds,
		log:        log.With().Str("service", "sell_cycle").Logger(),
		now:        time.Now,
	}
}

// Run executes one sell cycle. Per-symbol failures are isolated; the
// cycle always completes with a summary.
func (s *SellCycleService) Run(ctx context.Context) (CycleSummary, error) {
	summary := CycleSummary{Cycle: "sell"}
	startedAt := s.now()

	if err := s.thresholds.Validate(); err != nil {
		return summary, err
	}

	token, err := s.locks.Acquire("sell_cycle", startedAt)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("sell", "locked").Inc()
		return summary, err
	}

	completed := false
	defer func() {
		if !completed {
			if err := s.locks.Release("sell_cycle", startedAt, token); err != nil {
				s.log.Error().Err(err).Msg("Failed to release run lock")
			}
		}
	}()

	positions, err := s.broker.Positions(ctx)
	if err != nil {
		metrics.CyclesRun.WithLabelValues("sell", "error").Inc()
		return summary, fmt.Errorf("failed to fetch positions: %w", err)
	}

	summary.Attempted = len(positions)

	// Positions are processed one at a time; an interrupted cycle
	// leaves already-confirmed sells committed.
	for _, position := range positions {
		if ctx.Err() != nil {
			s.log.Warn().Err(ctx.Err()).Msg("Sell cycle interrupted between symbols")
			break
		}
		s.evaluatePosition(ctx, position, &summary)
	}

	completed = true
	metrics.CyclesRun.WithLabelValues("sell", "ok").Inc()
	s.log.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", s.now().Sub(startedAt)).
		Msg(summary.String())

	return summary, nil
}

func (s *SellCycleService) evaluatePosition(ctx context.Context, position domain.BrokerPosition, summary *CycleSummary) {
	holding, err := s.ledger.EarliestActiveHolding(position.Symbol)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", position.Symbol).Msg("Ledger lookup failed")
		metrics.SymbolsSkipped.WithLabelValues("ledger_error").Inc()
		summary.Skipped++
		return
	}
	if holding == nil {
		// Broker position with no ledger lot: bought outside this
		// system. Leave it alone.
		s.log.Debug().Str("symbol", position.Symbol).Msg("No active lot in ledger, skipping")
		metrics.SymbolsSkipped.WithLabelValues("no_active_lot").Inc()
		summary.Skipped++
		return
	}

	price := position.CurrentPrice
	if price <= 0 {
		price, err = s.feed.Quote(ctx, position.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", position.Symbol).Msg("Quote unavailable, skipping symbol")
			metrics.SymbolsSkipped.WithLabelValues("no_quote").Inc()
			summary.Skipped++
			return
		}
	}

	decision, err := lifecycle.Evaluate(*holding, price, s.now(), s.thresholds)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", position.Symbol).Msg("Evaluation failed, skipping symbol")
		metrics.SymbolsSkipped.WithLabelValues("invalid_input").Inc()
		summary.Skipped++
		return
	}

	if !decision.Sell {
		s.log.Debug().
			Str("symbol", position.Symbol).
			Int("holding_days", decision.HoldingDays).
			Bool("profitable", decision.IsProfitable).
			Msg("Holding below threshold")
		metrics.SymbolsSkipped.WithLabelValues("below_threshold").Inc()
		summary.Skipped++
		return
	}

	s.log.Info().
		Str("symbol", holding.Symbol).
		Int64("quantity", holding.Quantity).
		Str("reason", decision.Reason).
		Msg("Selling lot")

	confirmation, err := s.broker.SubmitOrder(ctx, holding.Symbol, holding.Quantity, domain.SideSell)
	if err != nil {
		// Never retried: the order may already have been accepted.
		s.log.Error().Err(err).Str("symbol", holding.Symbol).Msg("Sell order failed")
		metrics.OrdersFailed.WithLabelValues("SELL").Inc()
		summary.Failed++
		return
	}

	s.recordSell(confirmation)
	metrics.OrdersPlaced.WithLabelValues("SELL").Inc()
	summary.Succeeded++
}

// recordSell flips the lot to sold and writes the transaction. Ledger
// failures after a confirmed order are logged, not fatal.
func (s *SellCycleService) recordSell(confirmation *domain.OrderConfirmation) {
	if _, err := s.ledger.MarkSold(confirmation.Symbol); err != nil {
		s.log.Error().Err(err).Str("symbol", confirmation.Symbol).Msg("Order confirmed but status update failed")
	}

	err := s.ledger.RecordTransaction(domain.Transaction{
		Symbol:     confirmation.Symbol,
		Side:       domain.SideSell,
		Quantity:   confirmation.Quantity,
		Price:      confirmation.Price,
		ExecutedAt: s.now(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("symbol", confirmation.Symbol).Msg("Order confirmed but transaction write failed")
	}

	s.notifier.Notify(domain.TradeEvent{
		Kind:     domain.SideSell,
		Symbol:   confirmation.Symbol,
		Quantity: confirmation.Quantity,
		Price:    confirmation.Price,
	})
}
