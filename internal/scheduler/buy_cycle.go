package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/internal/services"
)

// BuyCycleJob runs the weekly buy cycle on its cron schedule.
type BuyCycleJob struct {
	service *services.BuyCycleService
	log     zerolog.Logger
}

// NewBuyCycleJob creates a new buy cycle job
func NewBuyCycleJob(service *services.BuyCycleService, log zerolog.Logger) *BuyCycleJob {
	return &BuyCycleJob{
		service: service,
		log:     log.With().Str("job", "buy_cycle").Logger(),
	}
}

// Name returns the job name
func (j *BuyCycleJob) Name() string {
	return "buy_cycle"
}

// Run executes one buy cycle. A held run lock means the cycle already
// ran today; that is a skip, not a failure.
func (j *BuyCycleJob) Run(ctx context.Context) error {
	summary, err := j.service.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			j.log.Warn().Msg("Buy cycle already ran today, skipping")
			return nil
		}
		return err
	}

	j.log.Info().Str("summary", summary.String()).Msg("Buy cycle finished")
	return nil
}
