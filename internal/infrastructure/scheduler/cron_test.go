package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every now and then", nil, false, nil)
	err := s.Start(context.Background(), func(time.Time) {})
	require.Error(t, err)
	require.NoError(t, s.Stop(context.Background()))
}

func TestCronSchedulerRunsOnStartAndStops(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewCronScheduler("@every 1h", time.UTC, true, nil)
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	// second start is a no-op while running
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(100) }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(1), runs.Load())
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("*/5 * * * *", nil, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	cancel()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cron == nil
	}, time.Second, 10*time.Millisecond)
}
