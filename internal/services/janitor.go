package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/observability"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// Janitor periodically deletes expired processed-event records, drops idle
// throttle buckets and refreshes the stored-profiles gauge. Throttle may be nil.
type Janitor struct {
	DB       *gorm.DB
	Throttle *ActionThrottle
	Every    time.Duration // 0 means 10m

	now func() time.Time
}

// Run sweeps once per interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	every := j.Every
	if every <= 0 {
		every = 10 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("janitor sweep failed")
			}
		}
	}
}

// Sweep runs one cleanup pass and returns the number of purged records.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	if j.Throttle != nil {
		j.Throttle.Evict()
	}
	n, err := repo.PurgeExpiredEvents(ctx, j.DB, now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.ProcessedEventsPurged.Add(float64(n))
		log.Debug().Int64("purged", n).Msg("expired processed events removed")
	}
	if total, err := repo.CountProfiles(ctx, j.DB); err == nil {
		observability.ProfilesStored.Set(float64(total))
	}
	return n, nil
}
