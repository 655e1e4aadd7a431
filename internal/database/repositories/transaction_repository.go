package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// TransactionRepository handles the immutable transaction log. One row
// is written per confirmed order and never touched again.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Record inserts a transaction row.
func (r *TransactionRepository) Record(tx domain.Transaction) error {
	query := `
		INSERT INTO transactions (symbol, side, quantity, price, total_amount, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		normalizeSymbol(tx.Symbol),
		string(tx.Side),
		tx.Quantity,
		tx.Price,
		float64(tx.Quantity)*tx.Price,
		tx.ExecutedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	r.log.Info().
		Str("symbol", tx.Symbol).
		Str("side", string(tx.Side)).
		Int64("quantity", tx.Quantity).
		Float64("price", tx.Price).
		Msg("Transaction recorded")

	return nil
}

// History returns the most recent transactions, newest first.
func (r *TransactionRepository) History(limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, symbol, side, quantity, price, total_amount, executed_at
		FROM transactions
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var tx domain.Transaction
	var side, executedAt string

	err := rows.Scan(
		&tx.ID,
		&tx.Symbol,
		&side,
		&tx.Quantity,
		&tx.Price,
		&tx.TotalAmount,
		&executedAt,
	)
	if err != nil {
		return tx, err
	}

	t, err := time.Parse(time.RFC3339, executedAt)
	if err != nil {
		return tx, fmt.Errorf("failed to parse executed_at %q: %w", executedAt, err)
	}
	tx.ExecutedAt = t
	tx.Side = domain.TradeSide(side)
	tx.Symbol = normalizeSymbol(tx.Symbol)

	return tx, nil
}
