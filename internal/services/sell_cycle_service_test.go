package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/internal/lifecycle"
	"github.com/aristath/formula-trader/pkg/logger"
)

var sellNow = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

func newSellService(feed *fakeFeed, broker *fakeBroker, ledger *fakeLedger, notifier *fakeNotifier, locks *fakeLocks) *SellCycleService {
	thresholds := lifecycle.Thresholds{UnprofitableDays: 360, ProfitableDays: 370}
	svc := NewSellCycleService(feed, broker, ledger, notifier, locks, thresholds, logger.New(logger.Config{Level: "error"}))
	svc.now = func() time.Time { return sellNow }
	return svc
}

func TestSellCycle_SellsAgedUnprofitableLot(t *testing.T) {
	ledger := &fakeLedger{holdings: []domain.Holding{{
		ID:               1,
		Symbol:           "AAPL",
		Quantity:         20,
		AcquisitionDate:  sellNow.AddDate(0, 0, -365),
		AcquisitionPrice: 100,
		Status:           domain.HoldingActive,
	}}}
	broker := &fakeBroker{
		positions:  []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 20, CurrentPrice: 90}},
		fillPrices: map[string]float64{"AAPL": 90},
		rejects:    map[string]bool{},
	}
	notifier := &fakeNotifier{}
	svc := newSellService(&fakeFeed{}, broker, ledger, notifier, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)

	require.Len(t, broker.orders, 1)
	assert.Equal(t, domain.SideSell, broker.orders[0].side)
	assert.Equal(t, int64(20), broker.orders[0].quantity)

	assert.Equal(t, domain.HoldingSold, ledger.holdings[0].Status)
	require.Len(t, ledger.transactions, 1)
	assert.Equal(t, domain.SideSell, ledger.transactions[0].Side)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, domain.SideSell, notifier.events[0].Kind)
}

func TestSellCycle_SelectsEarliestLotFIFO(t *testing.T) {
	// Two active lots for the same symbol; the older one's full
	// quantity is the one liquidated.
	ledger := &fakeLedger{holdings: []domain.Holding{
		{
			ID: 1, Symbol: "AAPL", Quantity: 7,
			AcquisitionDate:  sellNow.AddDate(0, 0, -100),
			AcquisitionPrice: 120,
			Status:           domain.HoldingActive,
		},
		{
			ID: 2, Symbol: "AAPL", Quantity: 20,
			AcquisitionDate:  sellNow.AddDate(0, 0, -400),
			AcquisitionPrice: 100,
			Status:           domain.HoldingActive,
		},
	}}
	broker := &fakeBroker{
		positions:  []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 27, CurrentPrice: 90}},
		fillPrices: map[string]float64{"AAPL": 90},
		rejects:    map[string]bool{},
	}
	svc := newSellService(&fakeFeed{}, broker, ledger, &fakeNotifier{}, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, broker.orders, 1)
	assert.Equal(t, int64(20), broker.orders[0].quantity)
}

func TestSellCycle_HoldsBelowThreshold(t *testing.T) {
	ledger := &fakeLedger{holdings: []domain.Holding{{
		ID: 1, Symbol: "AAPL", Quantity: 20,
		AcquisitionDate:  sellNow.AddDate(0, 0, -364),
		AcquisitionPrice: 100,
		Status:           domain.HoldingActive,
	}}}
	broker := &fakeBroker{
		positions: []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 20, CurrentPrice: 90}},
		rejects:   map[string]bool{},
	}
	svc := newSellService(&fakeFeed{}, broker, ledger, &fakeNotifier{}, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, broker.orders)
	assert.Equal(t, domain.HoldingActive, ledger.holdings[0].Status)
}

func TestSellCycle_SoldLotIsNeverReevaluated(t *testing.T) {
	ledger := &fakeLedger{holdings: []domain.Holding{{
		ID: 1, Symbol: "AAPL", Quantity: 20,
		AcquisitionDate:  sellNow.AddDate(0, 0, -400),
		AcquisitionPrice: 100,
		Status:           domain.HoldingActive,
	}}}
	broker := &fakeBroker{
		positions:  []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 20, CurrentPrice: 90}},
		fillPrices: map[string]float64{"AAPL": 90},
		rejects:    map[string]bool{},
	}
	svc := newSellService(&fakeFeed{}, broker, ledger, &fakeNotifier{}, &fakeLocks{})

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Succeeded)

	// Same broker state on the second pass (position feeds lag), but
	// the ledger now has no active lot: nothing to sell.
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, broker.orders, 1)
}

func TestSellCycle_PositionWithoutLedgerLotIsSkipped(t *testing.T) {
	broker := &fakeBroker{
		positions: []domain.BrokerPosition{{Symbol: "MANUAL", Quantity: 10, CurrentPrice: 50}},
		rejects:   map[string]bool{},
	}
	svc := newSellService(&fakeFeed{}, broker, &fakeLedger{}, &fakeNotifier{}, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, broker.orders)
}

func TestSellCycle_OrderRejectionLeavesLotActive(t *testing.T) {
	ledger := &fakeLedger{holdings: []domain.Holding{{
		ID: 1, Symbol: "AAPL", Quantity: 20,
		AcquisitionDate:  sellNow.AddDate(0, 0, -400),
		AcquisitionPrice: 100,
		Status:           domain.HoldingActive,
	}}}
	broker := &fakeBroker{
		positions: []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 20, CurrentPrice: 90}},
		rejects:   map[string]bool{"AAPL": true},
	}
	svc := newSellService(&fakeFeed{}, broker, ledger, &fakeNotifier{}, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	// The lot must stay active so the next cycle tries again.
	assert.Equal(t, domain.HoldingActive, ledger.holdings[0].Status)
}

func TestSellCycle_FallsBackToQuoteWhenPositionPriceMissing(t *testing.T) {
	ledger := &fakeLedger{holdings: []domain.Holding{{
		ID: 1, Symbol: "AAPL", Quantity: 20,
		AcquisitionDate:  sellNow.AddDate(0, 0, -400),
		AcquisitionPrice: 100,
		Status:           domain.HoldingActive,
	}}}
	broker := &fakeBroker{
		positions:  []domain.BrokerPosition{{Symbol: "AAPL", Quantity: 20, CurrentPrice: 0}},
		fillPrices: map[string]float64{"AAPL": 90},
		rejects:    map[string]bool{},
	}
	feed := &fakeFeed{quotes: map[string]float64{"AAPL": 90}}
	svc := newSellService(feed, broker, ledger, &fakeNotifier{}, &fakeLocks{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestSellCycle_LockHeld(t *testing.T) {
	broker := &fakeBroker{rejects: map[string]bool{}}
	svc := newSellService(&fakeFeed{}, broker, &fakeLedger{}, &fakeNotifier{}, &fakeLocks{denied: true})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}
