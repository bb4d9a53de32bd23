package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// countingScanner records how many scans ran.
type countingScanner struct {
	calls atomic.Int32
	err   error
}

func (s *countingScanner) Scan(context.Context) (*scanner.Report, error) {
	s.calls.Add(1)
	return &scanner.Report{ID: "scan"}, s.err
}

func TestShouldFire(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 500 * time.Millisecond

	tests := []struct {
		name  string
		now   time.Time
		fired bool
		want  bool
	}{
		{"never fired", base, false, true},
		{"same instant", base, true, false},
		{"inside window", base.Add(499 * time.Millisecond), true, false},
		{"window boundary", base.Add(window), true, true},
		{"after window", base.Add(2 * time.Second), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFire(tt.now, base, tt.fired, window))
		})
	}
}

func TestThrottle_CoalescesWithinWindow(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(500*time.Millisecond, clock.Now)

	assert.True(t, th.Allow())
	for i := 0; i < 9; i++ {
		clock.Advance(40 * time.Millisecond)
		assert.False(t, th.Allow())
	}

	allowed, suppressed := th.Stats()
	assert.Equal(t, uint64(1), allowed)
	assert.Equal(t, uint64(9), suppressed)

	// no trailing call: the window closing on its own fires nothing, the
	// next event after it does
	clock.Advance(500 * time.Millisecond)
	assert.True(t, th.Allow())
}

func TestThrottle_SpacedEventsAllFire(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(500*time.Millisecond, clock.Now)

	for i := 0; i < 5; i++ {
		assert.True(t, th.Allow(), "event %d", i)
		clock.Advance(500 * time.Millisecond)
	}
}

func TestThrottle_Defaults(t *testing.T) {
	th := NewThrottle(0, nil)
	assert.Equal(t, DefaultWindow, th.Window())
	assert.True(t, th.Allow())
}

func TestCoordinator_TriggerThrottles(t *testing.T) {
	clock := newFakeClock()
	s := &countingScanner{}
	c := New(s, WithWindow(500*time.Millisecond), WithClock(clock.Now))

	fired := 0
	for i := 0; i < 5; i++ {
		if c.Trigger(context.Background(), "event") {
			fired++
		}
	}
	c.Wait()
	assert.Equal(t, 1, fired)
	assert.Equal(t, int32(1), s.calls.Load())

	for i := 0; i < 3; i++ {
		clock.Advance(500 * time.Millisecond)
		assert.True(t, c.Trigger(context.Background(), "event"))
	}
	c.Wait()
	assert.Equal(t, int32(4), s.calls.Load())

	f, sup := c.Stats()
	assert.Equal(t, uint64(4), f)
	assert.Equal(t, uint64(4), sup)
}

func TestCoordinator_TriggerKeepsGoingOnError(t *testing.T) {
	clock := newFakeClock()
	boom := stderrors.New("boom")
	s := &countingScanner{err: boom}

	var (
		mu   sync.Mutex
		errs []error
	)
	c := New(s, WithClock(clock.Now), WithResultFunc(func(reason string, report *scanner.Report, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "change", reason)
		assert.NotNil(t, report)
		errs = append(errs, err)
	}))

	assert.True(t, c.Trigger(context.Background(), "change"))
	clock.Advance(time.Second)
	assert.True(t, c.Trigger(context.Background(), "change"))
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], boom)
}

// blockingScanner holds each scan until release is closed and records the
// context error it sees afterwards.
type blockingScanner struct {
	started chan struct{}
	release chan struct{}
	ctxErr  atomic.Value
}

func (s *blockingScanner) Scan(ctx context.Context) (*scanner.Report, error) {
	close(s.started)
	<-s.release
	s.ctxErr.Store(fmt.Sprint(ctx.Err()))
	return &scanner.Report{ID: "scan"}, nil
}

func TestCoordinator_TriggeredScanOutlivesCancel(t *testing.T) {
	s := &blockingScanner{started: make(chan struct{}), release: make(chan struct{})}
	c := New(s)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, c.Trigger(ctx, "change"))

	<-s.started
	cancel()
	close(s.release)
	c.Wait()

	assert.Equal(t, "<nil>", s.ctxErr.Load())
}

func TestCoordinator_RunOnceIgnoresCancel(t *testing.T) {
	var seen error = stderrors.New("not called")
	c := New(scanFunc(func(ctx context.Context) (*scanner.Report, error) {
		seen = ctx.Err()
		return &scanner.Report{}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RunOnce(ctx)
	require.NoError(t, err)
	assert.NoError(t, seen)
}

type scanFunc func(ctx context.Context) (*scanner.Report, error)

func (f scanFunc) Scan(ctx context.Context) (*scanner.Report, error) { return f(ctx) }

func TestCoordinator_RunOnceReturnsError(t *testing.T) {
	boom := stderrors.New("boom")
	c := New(&countingScanner{err: boom})

	report, err := c.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, report)

	// RunOnce does not consume the throttle
	assert.True(t, c.Trigger(context.Background(), "first"))
	c.Wait()
}
