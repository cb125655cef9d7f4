package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

const cronJobTimeout = 2 * time.Minute

// Crontab owns periodic maintenance jobs, currently just context expiry
// for stores that cannot expire entries on their own.
type Crontab struct {
	ctab  *crontab.Crontab
	store convo.Store
}

func NewCrontab(store convo.Store) *Crontab {
	return &Crontab{
		ctab:  crontab.New(),
		store: store,
	}
}

func (c *Crontab) Run(ctx context.Context) error {
	log := logger.WithComponent("crontab")

	sweeper, ok := c.store.(convo.Sweeper)
	if !ok {
		// Redis expires keys by TTL, nothing to schedule.
		log.Info().Msg("context store expires entries itself, no sweep job scheduled")
		<-ctx.Done()
		c.ctab.Shutdown()
		return nil
	}

	schedule := config.GetGlobal().ContextSweepSchedule
	if err := c.ctab.AddJob(schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
		defer cancel()
		c.sweep(jobCtx, sweeper)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add context sweep job")
	}
	log.Info().Str("schedule", schedule).Msg("context sweep scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweep(ctx context.Context, sweeper convo.Sweeper) {
	log := logger.WithComponent("crontab")

	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("context sweep failed")
		return
	}
	metrics.ContextSweepsTotal.Inc()
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expired stale conversation contexts")
	}
}
