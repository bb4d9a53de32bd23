package coordinator

import (
	"context"
	"time"

	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/scanner"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Scanner runs one reconciliation pass.
type Scanner interface {
	Scan(ctx context.Context) (*scanner.Report, error)
}

// ResultFunc receives the outcome of every scan the coordinator starts.
type ResultFunc func(reason string, report *scanner.Report, err error)

// Coordinator turns change notifications into throttled scans.
type Coordinator struct {
	scanner  Scanner
	throttle *Throttle
	onResult ResultFunc
	logger   zerolog.Logger
	wg       conc.WaitGroup
}

// Option configures a Coordinator.
type Option func(*config)

type config struct {
	window   time.Duration
	clock    Clock
	onResult ResultFunc
}

// WithWindow sets the throttle window.
func WithWindow(window time.Duration) Option {
	return func(c *config) { c.window = window }
}

// WithClock injects the time source used by the throttle.
func WithClock(clock Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithResultFunc registers a callback for scan outcomes.
func WithResultFunc(fn ResultFunc) Option {
	return func(c *config) { c.onResult = fn }
}

// New creates a Coordinator around s.
func New(s Scanner, opts ...Option) *Coordinator {
	cfg := config{window: DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Coordinator{
		scanner:  s,
		throttle: NewThrottle(cfg.window, cfg.clock),
		onResult: cfg.onResult,
		logger:   logging.GetLogger("coordinator"),
	}
}

// RunOnce scans synchronously, bypassing the throttle, and returns the scan
// error. This is the one-shot mode: callers fail on error. Like Trigger, the
// scan is not cut short by ctx cancellation.
func (c *Coordinator) RunOnce(ctx context.Context) (*scanner.Report, error) {
	report, err := c.scanner.Scan(context.WithoutCancel(ctx))
	if c.onResult != nil {
		c.onResult("once", report, err)
	}
	return report, err
}

// Trigger starts a scan in the background when the throttle allows it and
// reports whether it did. Scan errors are logged and passed to the result
// callback; they never stop the coordinator. A started scan runs to
// completion even if ctx is cancelled meanwhile; ctx values are kept.
func (c *Coordinator) Trigger(ctx context.Context, reason string) bool {
	if !c.throttle.Allow() {
		c.logger.Trace().Str("reason", reason).Msg("Change dropped by throttle")
		return false
	}

	c.logger.Debug().Str("reason", reason).Msg("Change triggered scan")
	scanCtx := context.WithoutCancel(ctx)
	c.wg.Go(func() {
		report, err := c.scanner.Scan(scanCtx)
		if err != nil {
			c.logger.Error().Err(err).Str("reason", reason).Msg("Scan failed, still watching")
		}
		if c.onResult != nil {
			c.onResult(reason, report, err)
		}
	})
	return true
}

// Wait blocks until every scan started by Trigger has finished. A panic in a
// scan is re-raised here.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Stats returns how many triggers started scans and how many were dropped.
func (c *Coordinator) Stats() (fired, suppressed uint64) {
	return c.throttle.Stats()
}
