package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// HoldingRepository handles holding lot persistence.
//
// The holdings table is append-only history: lots are inserted on buy
// confirmations and the only mutation is MarkSold flipping active rows
// to sold. Sold is terminal; nothing here ever flips it back.
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// Insert stores a new active holding lot.
func (r *HoldingRepository) Insert(holding domain.Holding) error {
	if holding.Quantity <= 0 {
		return fmt.Errorf("%w: holding quantity must be positive, got %d", domain.ErrInvalidInput, holding.Quantity)
	}

	query := `
		INSERT INTO holdings (symbol, quantity, acquisition_date, acquisition_price, status)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		normalizeSymbol(holding.Symbol),
		holding.Quantity,
		holding.AcquisitionDate.UTC().Format(time.RFC3339),
		holding.AcquisitionPrice,
		string(domain.HoldingActive),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	r.log.Info().
		Str("symbol", holding.Symbol).
		Int64("quantity", holding.Quantity).
		Msg("Holding created")

	return nil
}

// EarliestActive returns the oldest active lot for a symbol (FIFO), or
// nil when the symbol has no active lot.
func (r *HoldingRepository) EarliestActive(symbol string) (*domain.Holding, error) {
	query := `
		SELECT id, symbol, quantity, acquisition_date, acquisition_price, status
		FROM holdings
		WHERE symbol = ? AND status = 'active'
		ORDER BY acquisition_date ASC, id ASC
		LIMIT 1
	`

	row := r.db.QueryRow(query, normalizeSymbol(symbol))
	holding, err := scanHolding(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest active holding: %w", err)
	}

	return &holding, nil
}

// ActiveHoldings returns every active lot, oldest first.
func (r *HoldingRepository) ActiveHoldings() ([]domain.Holding, error) {
	query := `
		SELECT id, symbol, quantity, acquisition_date, acquisition_price, status
		FROM holdings
		WHERE status = 'active'
		ORDER BY acquisition_date ASC, id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		holding, err := scanHolding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// MarkSold flips every active lot of a symbol to sold and returns the
// number of rows updated. Already-sold rows are untouched, so a second
// pass over the same symbol updates nothing.
func (r *HoldingRepository) MarkSold(symbol string) (int64, error) {
	query := `UPDATE holdings SET status = 'sold' WHERE symbol = ? AND status = 'active'`

	result, err := r.db.Exec(query, normalizeSymbol(symbol))
	if err != nil {
		return 0, fmt.Errorf("failed to mark holdings sold: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated holdings: %w", err)
	}

	r.log.Info().
		Str("symbol", symbol).
		Int64("count", count).
		Msg("Holdings marked sold")

	return count, nil
}

func scanHolding(scan func(...any) error) (domain.Holding, error) {
	var holding domain.Holding
	var acquisitionDate string
	var acquisitionPrice sql.NullFloat64
	var status string

	err := scan(
		&holding.ID,
		&holding.Symbol,
		&holding.Quantity,
		&acquisitionDate,
		&acquisitionPrice,
		&status,
	)
	if err != nil {
		return holding, err
	}

	t, err := time.Parse(time.RFC3339, acquisitionDate)
	if err != nil {
		// Older rows may carry a bare date.
		t, err = time.Parse("2006-01-02", acquisitionDate)
	}
	if err != nil {
		return holding, fmt.Errorf("failed to parse acquisition date %q: %w", acquisitionDate, err)
	}
	holding.AcquisitionDate = t

	if acquisitionPrice.Valid {
		holding.AcquisitionPrice = acquisitionPrice.Float64
	}
	holding.Status = domain.HoldingStatus(status)
	holding.Symbol = normalizeSymbol(holding.Symbol)

	return holding, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
