package app

import (
	"context"
	"time"

	"github.com/dkeye/huddle/internal/core"
	"github.com/rs/zerolog/log"
)

// Sweeper is the leak-safety net behind immediate deletion on last leave.
// Every Interval it drops rooms empty for longer than Grace and repairs
// rooms whose host is not a participant.
type Sweeper struct {
	Rooms    core.RoomManager
	Interval time.Duration
	Grace    time.Duration
	Now      func() time.Time

	// OnRepair is called outside any room lock for each host re-election.
	OnRepair func(core.HostRepair)
	// OnSweep observes every completed pass.
	OnSweep func(core.SweepReport)
}

func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		log.Warn().Str("module", "app.sweeper").Msg("sweeper disabled")
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("grace", s.Grace).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return nil
		case <-t.C:
			s.SweepOnce()
		}
	}
}

func (s *Sweeper) SweepOnce() core.SweepReport {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	rep := s.Rooms.Sweep(now(), s.Grace)
	for _, id := range rep.Removed {
		log.Info().Str("module", "app.sweeper").Str("room", string(id)).Msg("swept idle room")
	}
	if s.OnRepair != nil {
		for _, r := range rep.Repairs {
			s.OnRepair(r)
		}
	}
	if s.OnSweep != nil {
		s.OnSweep(rep)
	}
	return rep
}
