package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sink receives every freshly computed snapshot.
type Sink interface {
	PublishStats(ctx context.Context, stats *Stats) error
}

// Scheduler recomputes stats on a cron schedule and pushes them to sinks.
type Scheduler struct {
	aggregator *Aggregator
	cron       *cron.Cron
	sinks      []Sink
	logger     *zap.Logger
	timeout    time.Duration

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewScheduler(aggregator *Aggregator, logger *zap.Logger, sinks ...Sink) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		cron:       cron.New(cron.WithParser(scheduleParser)),
		sinks:      sinks,
		logger:     logger,
		timeout:    2 * time.Minute,
	}
}

// ValidateSchedule reports whether expr is a five-field cron expression or descriptor.
func ValidateSchedule(expr string) error {
	if _, err := scheduleParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start registers the refresh job and starts the cron runner.
func (s *Scheduler) Start(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	entry, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entry = entry
	s.running = true
	s.cron.Start()

	s.logger.Info("Dashboard refresh scheduled", zap.String("cron", expr))
	return nil
}

// RunOnce refreshes the stats and publishes them. Errors are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	stats, err := s.aggregator.Refresh(ctx)
	if err != nil {
		s.logger.Error("Scheduled dashboard refresh failed", zap.Error(err))
		return
	}
	for _, sink := range s.sinks {
		if err := sink.PublishStats(ctx, stats); err != nil {
			s.logger.Warn("Failed to publish dashboard stats", zap.Error(err))
		}
	}
}

// Stop halts the runner and waits for an in-flight refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Remove(s.entry)
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Dashboard refresh stopped")
}

// NextRun reports when the refresh job fires next.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}
