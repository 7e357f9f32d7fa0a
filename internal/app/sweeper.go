package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically evicts abandoned rooms from a registry. It is
// started by the composition root and stops with the server context,
// so tests can run registries without any background timer.
type Sweeper struct {
	Registry  *Registry
	Interval  time.Duration
	Threshold time.Duration
}

func NewSweeper(reg *Registry, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{Registry: reg, Interval: interval, Threshold: threshold}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("threshold", s.Threshold).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Registry.Sweep(s.Threshold); n > 0 {
				log.Info().Str("module", "app.sweeper").Int("purged", n).Msg("sweep purged rooms")
			}
		}
	}
}
