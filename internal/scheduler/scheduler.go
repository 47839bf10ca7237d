package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/i474232898/cinesky/internal/weather"
)

// Fetcher refreshes the stored weather for a location.
type Fetcher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) error
}

// Sweeper drops client sessions idle for longer than maxIdle.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// Config controls the periodic jobs. Zero intervals fall back to defaults.
type Config struct {
	Locations     []weather.Location
	FetchInterval time.Duration
	FetchTimeout  time.Duration
	IdleTimeout   time.Duration
}

// Scheduler keeps popular cities warm and expires idle client sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	sweeper   Sweeper
	cfg       Config
	logger    *slog.Logger
}

// New creates a new Scheduler. sweeper may be nil.
func New(cfg Config, fetcher Fetcher, sweeper Sweeper, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		sweeper:   sweeper,
		cfg:       cfg,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cfg.Locations) == 0 {
		s.logger.Info("no locations configured; skipping warm-up job")
	} else {
		minutes := int(s.cfg.FetchInterval.Minutes())
		if minutes <= 0 {
			minutes = 15
		}
		if _, err := s.scheduler.Every(minutes).Minutes().Do(s.warm); err != nil {
			return err
		}
	}

	if s.sweeper != nil && s.cfg.IdleTimeout > 0 {
		if _, err := s.scheduler.Every(1).Minute().Do(s.sweep); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) warm() {
	s.logger.Debug("running weather fetch job", "locations", len(s.cfg.Locations))

	var wg sync.WaitGroup
	for _, loc := range s.cfg.Locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
			defer cancel()

			if err := s.fetcher.FetchAndStore(ctx, loc); err != nil {
				s.logger.Warn("fetch failed", "location", loc.Key(), "error", err)
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("completed weather fetch job")
}

func (s *Scheduler) sweep() {
	if n := s.sweeper.Sweep(s.cfg.IdleTimeout); n > 0 {
		s.logger.Info("expired idle clients", "count", n)
	}
}
