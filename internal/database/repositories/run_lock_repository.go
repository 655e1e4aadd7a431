package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// RunLockRepository guards against two overlapping runs of the same
// cycle. A lock is keyed by job name + run date; the primary key makes
// a second acquisition on the same day fail, so two buy jobs triggered
// concurrently cannot both allocate against the same cash snapshot.
type RunLockRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunLockRepository creates a new run lock repository
func NewRunLockRepository(db *sql.DB, log zerolog.Logger) *RunLockRepository {
	return &RunLockRepository{
		db:  db,
		log: log.With().Str("repo", "run_lock").Logger(),
	}
}

// Acquire takes the lock for a job on the given day and returns the
// lock token. Returns ErrLockHeld when another run already holds it.
func (r *RunLockRepository) Acquire(job string, day time.Time) (string, error) {
	token := uuid.NewString()
	runDate := day.UTC().Format("2006-01-02")

	query := `INSERT INTO run_locks (job, run_date, token, acquired_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.Exec(query, job, runDate, token, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s already ran on %s", domain.ErrLockHeld, job, runDate)
		}
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}

	r.log.Debug().
		Str("job", job).
		Str("run_date", runDate).
		Str("token", token).
		Msg("Run lock acquired")

	return token, nil
}

// Release drops the lock identified by its token. Called on cycle
// failure so a retry the same day is possible; completed runs keep
// their lock row as an idempotency record.
func (r *RunLockRepository) Release(job string, day time.Time, token string) error {
	query := `DELETE FROM run_locks WHERE job = ? AND run_date = ? AND token = ?`

	result, err := r.db.Exec(query, job, day.UTC().Format("2006-01-02"), token)
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	if count, err := result.RowsAffected(); err == nil && count == 0 {
		r.log.Warn().Str("job", job).Msg("Run lock release matched no row")
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces constraint failures as plain errors;
	// match on the SQLite message text.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
