package repositories

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/formula-trader/internal/database"
	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/pkg/logger"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db
}

func TestHoldingRepository_EarliestActiveIsFIFO(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewHoldingRepository(db.Conn(), log)

	older := domain.Holding{
		Symbol:           "aapl",
		Quantity:         10,
		AcquisitionDate:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionPrice: 100,
	}
	newer := domain.Holding{
		Symbol:           "AAPL",
		Quantity:         5,
		AcquisitionDate:  time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionPrice: 120,
	}

	// Insert newest first to prove selection is by acquisition date,
	// not row order.
	require.NoError(t, repo.Insert(newer))
	require.NoError(t, repo.Insert(older))

	earliest, err := repo.EarliestActive("AAPL")
	require.NoError(t, err)
	require.NotNil(t, earliest)

	assert.Equal(t, int64(10), earliest.Quantity)
	assert.Equal(t, 100.0, earliest.AcquisitionPrice)
	assert.True(t, earliest.AcquisitionDate.Equal(older.AcquisitionDate))
	assert.Equal(t, domain.HoldingActive, earliest.Status)
}

func TestHoldingRepository_MarkSoldIsTerminal(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewHoldingRepository(db.Conn(), log)

	require.NoError(t, repo.Insert(domain.Holding{
		Symbol:           "MSFT",
		Quantity:         3,
		AcquisitionDate:  time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionPrice: 250,
	}))

	count, err := repo.MarkSold("MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// A second pass finds no eligible rows and updates nothing.
	count, err = repo.MarkSold("MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	earliest, err := repo.EarliestActive("MSFT")
	require.NoError(t, err)
	assert.Nil(t, earliest)
}

func TestHoldingRepository_RejectsNonPositiveQuantity(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewHoldingRepository(db.Conn(), log)

	err := repo.Insert(domain.Holding{Symbol: "X", Quantity: 0, AcquisitionDate: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHoldingRepository_ActiveHoldings(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewHoldingRepository(db.Conn(), log)

	require.NoError(t, repo.Insert(domain.Holding{
		Symbol: "A", Quantity: 1,
		AcquisitionDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.Insert(domain.Holding{
		Symbol: "B", Quantity: 2,
		AcquisitionDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	_, err := repo.MarkSold("A")
	require.NoError(t, err)

	active, err := repo.ActiveHoldings()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Symbol)
}

func TestTransactionRepository_RecordAndHistory(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewTransactionRepository(db.Conn(), log)

	require.NoError(t, repo.Record(domain.Transaction{
		Symbol:     "aapl",
		Side:       domain.SideBuy,
		Quantity:   20,
		Price:      60,
		ExecutedAt: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.Record(domain.Transaction{
		Symbol:     "AAPL",
		Side:       domain.SideSell,
		Quantity:   20,
		Price:      75,
		ExecutedAt: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}))

	history, err := repo.History(10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first; total amount derived from quantity * price.
	assert.Equal(t, domain.SideSell, history[0].Side)
	assert.Equal(t, 1500.0, history[0].TotalAmount)
	assert.Equal(t, "AAPL", history[1].Symbol)
	assert.Equal(t, 1200.0, history[1].TotalAmount)
}

func TestRunLockRepository_SecondAcquireFails(t *testing.T) {
	db := testDB(t)
	log := logger.New(logger.Config{Level: "error"})
	repo := NewRunLockRepository(db.Conn(), log)

	day := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

	token, err := repo.Acquire("buy_cycle", day)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = repo.Acquire("buy_cycle", day)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// A different job the same day is unaffected.
	_, err = repo.Acquire("sell_cycle", day)
	require.NoError(t, err)

	// After release the lock can be re-acquired.
	require.NoError(t, repo.Release("buy_cycle", day, token))
	_, err = repo.Acquire("buy_cycle", day)
	require.NoError(t, err)
}
