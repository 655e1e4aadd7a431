package services

import (
	"context"
	"time"

	"github.com/aristath/formula-trader/internal/domain"
)

// DataFeed provides the stock universe, factor metrics and quotes.
type DataFeed interface {
	Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error)
	Metrics(ctx context.Context, symbols []string) ([]domain.StockMetric, error)
	Quote(ctx context.Context, symbol string) (float64, error)
}

// BrokerGateway provides account state and order execution.
type BrokerGateway interface {
	Account(ctx context.Context) (domain.AccountSnapshot, error)
	Positions(ctx context.Context) ([]domain.BrokerPosition, error)
	SubmitOrder(ctx context.Context, symbol string, quantity int64, side domain.TradeSide) (*domain.OrderConfirmation, error)
}

// Ledger owns holding and transaction persistence.
type Ledger interface {
	RecordTransaction(tx domain.Transaction) error
	InsertHolding(holding domain.Holding) error
	EarliestActiveHolding(symbol string) (*domain.Holding, error)
	MarkSold(symbol string) (int64, error)
}

// Notifier delivers trade alerts. Implementations must never block a
// cycle on delivery failure.
type Notifier interface {
	Notify(event domain.TradeEvent)
}

// RunLocker serializes runs of the same cycle within a day.
type RunLocker interface {
	Acquire(job string, day time.Time) (string, error)
	Release(job string, day time.Time, token string) error
}
