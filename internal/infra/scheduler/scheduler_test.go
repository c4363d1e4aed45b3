package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type countingSweeper struct {
	calls atomic.Int64
	err   error
	panic bool
}

func (s *countingSweeper) Sweep(context.Context) error {
	s.calls.Add(1)
	if s.panic {
		panic("sweep exploded")
	}
	return s.err
}

func TestRunSweep_SuccessDoesNotBackOff(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewFollowUpScheduler(sweeper, testLogger(), time.Minute, time.Hour)

	s.runSweep()
	s.runSweep()

	assert.Equal(t, int64(2), sweeper.calls.Load())
}

func TestRunSweep_FailureEntersBackoff(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	s := NewFollowUpScheduler(sweeper, testLogger(), time.Minute, time.Hour)

	s.runSweep()
	assert.Equal(t, int64(1), sweeper.calls.Load())

	// Ticks inside the back-off window never reach the sweeper.
	s.runSweep()
	s.runSweep()
	assert.Equal(t, int64(1), sweeper.calls.Load())
}

func TestRunSweep_BackoffExpires(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	s := NewFollowUpScheduler(sweeper, testLogger(), time.Minute, 10*time.Millisecond)

	s.runSweep()
	time.Sleep(20 * time.Millisecond)
	s.runSweep()

	assert.Equal(t, int64(2), sweeper.calls.Load(), "the sweep resumes once the back-off window passes")
}

func TestRunSweep_PanicIsRecovered(t *testing.T) {
	sweeper := &countingSweeper{panic: true}
	s := NewFollowUpScheduler(sweeper, testLogger(), time.Minute, time.Hour)

	assert.NotPanics(t, func() { s.runSweep() })

	// The panic also backs the loop off.
	s.runSweep()
	assert.Equal(t, int64(1), sweeper.calls.Load())
}

func TestScheduler_StartAndStop(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewFollowUpScheduler(sweeper, testLogger(), 20*time.Millisecond, time.Hour)

	require.NoError(t, s.Start())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, sweeper.calls.Load(), int64(1), "the cron engine fires the sweep on its interval")
}
