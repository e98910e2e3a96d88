package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/config"
	"clockwise-api/internal/models"
	"clockwise-api/internal/services"
)

// BenchmarkWarmer is the slice of the market-data client the cache-warm
// job needs.
type BenchmarkWarmer interface {
	GetBenchmarkSeries(ctx context.Context, from, to time.Time) ([]models.DailyValue, error)
	GetTBillRates(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// Scheduler runs the background jobs: warming the benchmark series cache
// ahead of the morning upload window and refreshing the metrics listing.
type Scheduler struct {
	cron       *cron.Cron
	cfg        config.SchedulerConfig
	marketData BenchmarkWarmer
	metrics    *services.MetricsService
	logger     *logrus.Entry
}

func New(cfg config.SchedulerConfig, marketData BenchmarkWarmer, metrics *services.MetricsService) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.TimeZone, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(location)),
		cfg:        cfg,
		marketData: marketData,
		metrics:    metrics,
		logger:     logrus.WithField("component", "scheduler"),
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.CacheWarmInterval, s.warmCaches); err != nil {
		return fmt.Errorf("failed to register cache-warm job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("cache_warm", s.cfg.CacheWarmInterval).Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// warmCaches pre-fetches the trailing-3-year benchmark series so the
// first upload of the day hits a warm cache, then refreshes the metrics
// listing cache.
func (s *Scheduler) warmCaches() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	from := now.AddDate(-3, 0, -7)
	if s.marketData != nil {
		if _, err := s.marketData.GetBenchmarkSeries(ctx, from, now); err != nil {
			s.logger.WithError(err).Warn("Benchmark cache warm failed")
		} else {
			s.logger.Info("Benchmark cache warmed")
		}
		if _, err := s.marketData.GetTBillRates(ctx, from, now); err != nil {
			s.logger.WithError(err).Warn("T-bill cache warm failed")
		}
	}

	if s.metrics != nil {
		if _, err := s.metrics.ListMetrics(ctx); err != nil {
			s.logger.WithError(err).Warn("Metrics cache warm failed")
		}
	}
}
