package app

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/prism/internal/common"
)

// purger is the part of the market service the janitor needs
type purger interface {
	PurgeExpired() int
}

// Janitor periodically removes expired market data cache entries.
type Janitor struct {
	cron   *cron.Cron
	target purger
	logger *common.Logger
}

// NewJanitor creates a janitor for the given cache owner
func NewJanitor(target purger, logger *common.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		target: target,
		logger: logger,
	}
}

// Start registers the purge job on a cron schedule such as "@every 10m"
// and starts the scheduler.
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Str("schedule", schedule).Msg("Cache janitor started")
	return nil
}

// RunOnce purges expired entries immediately
func (j *Janitor) RunOnce() {
	start := time.Now()
	removed := j.target.PurgeExpired()
	j.logger.Debug().
		Int("removed", removed).
		Dur("elapsed", time.Since(start)).
		Msg("Cache janitor: purge complete")
}

// Stop halts the scheduler and waits for a running purge to finish
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info().Msg("Cache janitor stopped")
}
