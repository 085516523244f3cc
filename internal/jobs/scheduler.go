package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type sessionPruner interface {
	PruneIndex(ctx context.Context) (int, error)
}

// Scheduler runs periodic housekeeping. Expiry of accounts, sessions and
// pending registrations is left to Redis; only the per-user session index
// sets need sweeping.
type Scheduler struct {
	cron     *cron.Cron
	sessions sessionPruner
	spec     string
	log      zerolog.Logger
}

func NewScheduler(sessions sessionPruner, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		spec:     spec,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessions == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-s.cron.Stop().Done()
		cancel()
	}()
	return func() {
		<-ctx.Done()
		cancel()
	}
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.PruneIndex(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session index sweep failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("session index swept")
	}
}
