package repositories

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// Ledger bundles the holding and transaction repositories behind the
// single persistence surface the trading cycles consume.
type Ledger struct {
	holdings     *HoldingRepository
	transactions *TransactionRepository
}

// NewLedger creates the combined ledger over one database connection.
func NewLedger(db *sql.DB, log zerolog.Logger) *Ledger {
	return &Ledger{
		holdings:     NewHoldingRepository(db, log),
		transactions: NewTransactionRepository(db, log),
	}
}

// RecordTransaction appends one immutable transaction row.
func (l *Ledger) RecordTransaction(tx domain.Transaction) error {
	return l.transactions.Record(tx)
}

// InsertHolding stores a new active lot.
func (l *Ledger) InsertHolding(holding domain.Holding) error {
	return l.holdings.Insert(holding)
}

// EarliestActiveHolding returns the FIFO lot for a symbol, nil if none.
func (l *Ledger) EarliestActiveHolding(symbol string) (*domain.Holding, error) {
	return l.holdings.EarliestActive(symbol)
}

// MarkSold transitions a symbol's active lots to sold.
func (l *Ledger) MarkSold(symbol string) (int64, error) {
	return l.holdings.MarkSold(symbol)
}

// Holdings exposes the holding repository for the API layer.
func (l *Ledger) Holdings() *HoldingRepository {
	return l.holdings
}

// Transactions exposes the transaction repository for the API layer.
func (l *Ledger) Transactions() *TransactionRepository {
	return l.transactions
}
