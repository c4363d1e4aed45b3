package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper is what the scheduler drives each tick; implemented by the
// follow-up service.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// FollowUpScheduler runs the follow-up sweep on a fixed interval. A failed
// sweep flips the loop into a longer back-off window: ticks arriving inside
// that window are skipped instead of hammering a broken store.
type FollowUpScheduler struct {
	cronEngine *cron.Cron
	sweeper    Sweeper
	logger     *logrus.Entry
	interval   time.Duration
	backoff    time.Duration
	jobTimeout time.Duration

	mu         sync.Mutex
	retryAfter time.Time
}

func NewFollowUpScheduler(
	sweeper Sweeper,
	logger *logrus.Entry,
	interval time.Duration,
	backoff time.Duration,
) *FollowUpScheduler {
	return &FollowUpScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		sweeper:    sweeper,
		logger:     logger,
		interval:   interval,
		backoff:    backoff,
		jobTimeout: time.Minute,
	}
}

func (s *FollowUpScheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cronEngine.AddFunc(spec, s.runSweep); err != nil {
		return fmt.Errorf("could not add follow-up sweep cron job: %w", err)
	}
	s.cronEngine.Start()
	s.logger.WithField("interval", s.interval.String()).Info("Follow-up scheduler started")
	return nil
}

func (s *FollowUpScheduler) runSweep() {
	if s.inBackoff() {
		s.logger.Debug("Follow-up sweep skipped during back-off window")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	// The sweep body never kills the loop: any failure backs the loop off
	// and the next eligible tick retries.
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Follow-up sweep panicked; backing off")
			s.enterBackoff()
		}
	}()

	if err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.WithError(err).Error("Follow-up sweep failed; backing off")
		s.enterBackoff()
	}
}

func (s *FollowUpScheduler) inBackoff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.retryAfter)
}

func (s *FollowUpScheduler) enterBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAfter = time.Now().Add(s.backoff)
}

// Stop waits for an in-flight sweep, bounded by the job timeout.
func (s *FollowUpScheduler) Stop() {
	s.logger.Info("Stopping follow-up scheduler...")
	ctx := s.cronEngine.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(s.jobTimeout):
		s.logger.Warn("Follow-up scheduler stop timed out with a sweep in flight")
	}
	s.logger.Info("Follow-up scheduler stopped")
}
