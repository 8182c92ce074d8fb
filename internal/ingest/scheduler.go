package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// ServerRegistry lists the servers to ingest, re-read on every tick so
// newly configured servers are picked up without a restart.
type ServerRegistry interface {
	ListServers(ctx context.Context) ([]domain.ServerConnection, error)
}

// Scheduler drives ingestion cycles on one fixed interval per stream kind.
// Servers within a tick run concurrently up to a bounded limit, and one
// server's failure never stops the rest of the tick.
type Scheduler struct {
	registry      ServerRegistry
	runner        *Runner
	sched         gocron.Scheduler
	maxConcurrent int
	log           zerolog.Logger
}

// NewScheduler creates a scheduler with one job per stream interval.
func NewScheduler(registry ServerRegistry, runner *Runner, logInterval, feedInterval time.Duration, maxConcurrent int, log zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	s := &Scheduler{
		registry:      registry,
		runner:        runner,
		sched:         gs,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = 4
	}

	jobs := []struct {
		stream   domain.Stream
		interval time.Duration
	}{
		{domain.StreamLog, logInterval},
		{domain.StreamKillFeed, feedInterval},
	}
	for _, j := range jobs {
		stream := j.stream
		_, err := gs.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(func(ctx context.Context) { s.Tick(ctx, stream) }),
			gocron.WithName("ingest-"+string(stream)),
		)
		if err != nil {
			return nil, fmt.Errorf("creating %s job: %w", stream, err)
		}
	}

	return s, nil
}

// Start begins firing ticks.
func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info().Msg("ingestion scheduler started")
}

// Stop shuts the scheduler down and waits for running ticks to finish.
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// Tick runs one ingestion pass of every registered server for a stream.
// Exported so a tick can also be forced manually.
func (s *Scheduler) Tick(ctx context.Context, stream domain.Stream) {
	servers, err := s.registry.ListServers(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("stream", string(stream)).Msg("listing servers for tick")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i := range servers {
		srv := servers[i]
		g.Go(func() error {
			// Failures are logged, never returned: one bad server must
			// not cancel the rest of the tick.
			n, err := s.runner.RunCycle(gctx, &srv, stream)
			switch {
			case errors.Is(err, ErrCycleInFlight):
				s.log.Debug().
					Int64("server", srv.ID).
					Str("stream", string(stream)).
					Msg("previous cycle still running, skipping")
			case err != nil:
				s.log.Warn().Err(err).
					Int64("server", srv.ID).
					Str("stream", string(stream)).
					Int("applied", n).
					Msg("ingestion cycle failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
