package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
	"github.com/aristath/formula-trader/internal/services"
)

// SellCycleJob runs the daily sell cycle on its cron schedule.
type SellCycleJob struct {
	service *services.SellCycleService
	log     zerolog.Logger
}

// NewSellCycleJob creates a new sell cycle job
func NewSellCycleJob(service *services.SellCycleService, log zerolog.Logger) *SellCycleJob {
	return &SellCycleJob{
		service: service,
		log:     log.With().Str("job", "sell_cycle").Logger(),
	}
}

// Name returns the job name
func (j *SellCycleJob) Name() string {
	return "sell_cycle"
}

// Run executes one sell cycle, skipping quietly when today's run
// already happened.
func (j *SellCycleJob) Run(ctx context.Context) error {
	summary, err := j.service.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			j.log.Warn().Msg("Sell cycle already ran today, skipping")
			return nil
		}
		return err
	}

	j.log.Info().Str("summary", summary.String()).Msg("Sell cycle finished")
	return nil
}
