package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/formula-trader/internal/domain"
)

// In-memory collaborator fakes for cycle tests.

type fakeFeed struct {
	symbols   []string
	screenErr error
	metrics   []domain.StockMetric
	quotes    map[string]float64
	quoteErrs map[string]error
}

func (f *fakeFeed) Screen(ctx context.Context, exchange string, minMarketCap float64) ([]string, error) {
	return f.symbols, f.screenErr
}

func (f *fakeFeed) Metrics(ctx context.Context, symbols []string) ([]domain.StockMetric, error) {
	return f.metrics, nil
}

func (f *fakeFeed) Quote(ctx context.Context, symbol string) (float64, error) {
	if err, ok := f.quoteErrs[symbol]; ok {
		return 0, err
	}
	price, ok := f.quotes[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

type placedOrder struct {
	symbol   string
	quantity int64
	side     domain.TradeSide
}

type fakeBroker struct {
	account     domain.AccountSnapshot
	positions   []domain.BrokerPosition
	orders      []placedOrder
	rejects     map[string]bool
	fillPrices  map[string]float64 // overrides quote-time price at fill
	nextOrderID int
}

func (f *fakeBroker) Account(ctx context.Context) (domain.AccountSnapshot, error) {
	return f.account, nil
}

func (f *fakeBroker) Positions(ctx context.Context) ([]domain.BrokerPosition, error) {
	return f.positions, nil
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, symbol string, quantity int64, side domain.TradeSide) (*domain.OrderConfirmation, error) {
	if f.rejects[symbol] {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderRejected, symbol)
	}

	f.orders = append(f.orders, placedOrder{symbol: symbol, quantity: quantity, side: side})
	f.nextOrderID++

	price := f.fillPrices[symbol]
	return &domain.OrderConfirmation{
		OrderID:  fmt.Sprintf("ORD-%d", f.nextOrderID),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}, nil
}

type fakeLedger struct {
	holdings     []domain.Holding
	transactions []domain.Transaction
	lookupErr    error
	nextID       int64
}

func (f *fakeLedger) RecordTransaction(tx domain.Transaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeLedger) InsertHolding(holding domain.Holding) error {
	f.nextID++
	holding.ID = f.nextID
	holding.Status = domain.HoldingActive
	f.holdings = append(f.holdings, holding)
	return nil
}

func (f *fakeLedger) EarliestActiveHolding(symbol string) (*domain.Holding, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var earliest *domain.Holding
	for i := range f.holdings {
		h := &f.holdings[i]
		if h.Symbol != symbol || h.Status != domain.HoldingActive {
			continue
		}
		if earliest == nil || h.AcquisitionDate.Before(earliest.AcquisitionDate) {
			earliest = h
		}
	}
	if earliest == nil {
		return nil, nil
	}
	copied := *earliest
	return &copied, nil
}

func (f *fakeLedger) MarkSold(symbol string) (int64, error) {
	var count int64
	for i := range f.holdings {
		if f.holdings[i].Symbol == symbol && f.holdings[i].Status == domain.HoldingActive {
			f.holdings[i].Status = domain.HoldingSold
			count++
		}
	}
	return count, nil
}

type fakeNotifier struct {
	events []domain.TradeEvent
}

func (f *fakeNotifier) Notify(event domain.TradeEvent) {
	f.events = append(f.events, event)
}

type fakeLocks struct {
	denied   bool
	acquired []string
	released []string
}

func (f *fakeLocks) Acquire(job string, day time.Time) (string, error) {
	if f.denied {
		return "", fmt.Errorf("%w: %s", domain.ErrLockHeld, job)
	}
	f.acquired = append(f.acquired, job)
	return "test-token", nil
}

func (f *fakeLocks) Release(job string, day time.Time, token string) error {
	f.released = append(f.released, job)
	return nil
}

var errUpstream = errors.New("upstream unavailable")
