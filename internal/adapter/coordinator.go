package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"lanwatch/internal/codec"
	"lanwatch/internal/domain"
	"lanwatch/internal/metrics"
)

const (
	// DefaultInterval matches the scanner integration's default scan interval
	DefaultInterval = 60 * time.Second
	// DefaultTimeout bounds a single fetch
	DefaultTimeout = 10 * time.Second
)

// Poll states
const (
	StateIdle      = "idle"
	StateFetching  = "fetching"
	StatePublished = "published"
	StateFailed    = "failed"
)

// Poll events
const (
	EventFetch   = "fetch"
	EventPublish = "publish"
	EventFail    = "fail"
	EventSettle  = "settle"
	EventAbort   = "abort"
)

// Options tunes a coordinator
type Options struct {
	// Interval is the fixed tick period
	Interval time.Duration
	// Timeout bounds the wall-clock time of each fetch
	Timeout time.Duration
}

// Status is a point-in-time summary of a coordinator
type Status struct {
	Source              string           `json:"source"`
	Endpoint            string           `json:"endpoint"`
	State               string           `json:"state"`
	Interval            string           `json:"interval"`
	Running             bool             `json:"running"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	LastErrorKind       domain.ErrorKind `json:"last_error_kind,omitempty"`
	LastError           string           `json:"last_error,omitempty"`
	LastAttempt         time.Time        `json:"last_attempt"`
	LastSuccess         time.Time        `json:"last_success"`
	SkippedTicks        uint64           `json:"skipped_ticks"`
	Hosts               int              `json:"hosts"`
}

type fetchResult struct {
	snap   *domain.Snapshot
	report codec.Report
	err    error
	took   time.Duration
}

// Coordinator polls one source on a fixed timer. A single goroutine owns
// the poll cycle: it is the only writer of the current snapshot and the only
// caller of the sink, so fetches never overlap and a cycle is never
// interleaved with a selection change.
type Coordinator struct {
	source Source
	sink   Sink
	opts   Options
	log    zerolog.Logger
	now    func() time.Time

	machine  *fsm.FSM
	snapshot atomic.Pointer[domain.Snapshot]

	mu          sync.Mutex
	failures    int
	lastErr     error
	lastAttempt time.Time
	skipped     uint64

	selections chan domain.SelectionSet
	triggers   chan chan error
	results    chan fetchResult

	startMu sync.Mutex
	started bool
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCoordinator creates a coordinator for source that reports to sink
func NewCoordinator(source Source, sink Sink, opts Options, log zerolog.Logger) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	c := &Coordinator{
		source:     source,
		sink:       sink,
		opts:       opts,
		log:        log.With().Str("component", "coordinator").Str("source", source.Name()).Logger(),
		now:        time.Now,
		selections: make(chan domain.SelectionSet),
		triggers:   make(chan chan error),
		results:    make(chan fetchResult, 1),
		done:       make(chan struct{}),
	}

	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventFetch, Src: []string{StateIdle}, Dst: StateFetching},
			{Name: EventPublish, Src: []string{StateFetching}, Dst: StatePublished},
			{Name: EventFail, Src: []string{StateFetching}, Dst: StateFailed},
			{Name: EventSettle, Src: []string{StatePublished, StateFailed}, Dst: StateIdle},

			// Shutdown while fetching
			{Name: EventAbort, Src: []string{StateFetching}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_" + StatePublished: wrapEvent(c.enterPublished),
			"enter_" + StateFailed:    wrapEvent(c.enterFailed),
		},
	)
	return c
}

// wrapEvent adapts an error-returning callback to fsm.Callback
func wrapEvent(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Err = err
		}
	}
}

// Name returns the source name
func (c *Coordinator) Name() string {
	return c.source.Name()
}

// Sink returns the sink that receives this coordinator's cycles
func (c *Coordinator) Sink() Sink {
	return c.sink
}

// Snapshot returns the current snapshot, or nil before the first success
func (c *Coordinator) Snapshot() *domain.Snapshot {
	return c.snapshot.Load()
}

// State returns the current poll state
func (c *Coordinator) State() string {
	return c.machine.Current()
}

// Start probes the source and runs the first poll synchronously. Its error
// is returned so the caller can abort startup; no retry happens here. On
// success the poll loop runs until ctx is done or Stop is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.started {
		return fmt.Errorf("source %s already started", c.Name())
	}

	if err := c.source.Probe(ctx); err != nil {
		c.log.Error().Err(err).Str("kind", string(domain.Classify(err))).Msg("Scanner not reachable")
		return fmt.Errorf("probe %s: %w", c.source.Endpoint(), err)
	}

	if err := c.pollOnce(ctx); err != nil {
		return fmt.Errorf("initial poll of %s: %w", c.Name(), err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.running.Store(true)

	go c.run(loopCtx)

	c.log.Info().
		Str("endpoint", c.source.Endpoint()).
		Dur("interval", c.opts.Interval).
		Dur("timeout", c.opts.Timeout).
		Msg("Started poll loop")
	return nil
}

// Stop aborts any in-flight fetch and waits for the poll loop to exit. A
// stopped coordinator cannot be started again.
func (c *Coordinator) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}

// TriggerPoll starts a fetch now. It fails with ErrPollInProgress when a
// fetch is already in flight. It returns once the fetch has started.
func (c *Coordinator) TriggerPoll(ctx context.Context) error {
	if !c.running.Load() {
		return domain.ErrNotStarted
	}

	reply := make(chan error, 1)
	select {
	case c.triggers <- reply:
	case <-c.done:
		return domain.ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		return domain.ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateSelection hands a new selection to the poll loop. It is applied
// against the current snapshot right away, or at the end of the cycle if a
// fetch is in flight.
func (c *Coordinator) UpdateSelection(ctx context.Context, selection domain.SelectionSet) error {
	if !c.running.Load() {
		return domain.ErrNotStarted
	}

	select {
	case c.selections <- selection.Clone():
		return nil
	case <-c.done:
		return domain.ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a summary for operators
func (c *Coordinator) Status() Status {
	state := c.machine.Current()
	snap := c.snapshot.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Source:              c.Name(),
		Endpoint:            c.source.Endpoint(),
		State:               state,
		Interval:            c.opts.Interval.String(),
		Running:             c.running.Load(),
		ConsecutiveFailures: c.failures,
		LastAttempt:         c.lastAttempt,
		SkippedTicks:        c.skipped,
		Hosts:               snap.Len(),
	}
	if c.lastErr != nil {
		s.LastErrorKind = domain.Classify(c.lastErr)
		s.LastError = c.lastErr.Error()
	}
	if snap != nil {
		s.LastSuccess = snap.PolledAt()
	}
	return s
}

// pollOnce runs a full cycle on the calling goroutine
func (c *Coordinator) pollOnce(ctx context.Context) error {
	if err := c.machine.Event(ctx, EventFetch); err != nil {
		return fmt.Errorf("%s: %w", EventFetch, err)
	}
	c.markAttempt()

	res := c.fetch(ctx)
	if ctx.Err() != nil {
		c.abort()
		return ctx.Err()
	}
	if err := c.finish(ctx, res); err != nil {
		return err
	}
	return res.err
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer c.running.Store(false)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	var (
		inflight context.CancelFunc
		pending  domain.SelectionSet
	)

	for {
		select {
		case <-ctx.Done():
			if inflight != nil {
				inflight()
				<-c.results
				c.abort()
			}
			c.log.Info().Msg("Stopping poll loop")
			return

		case <-ticker.C:
			if inflight != nil {
				c.skip()
				continue
			}
			inflight = c.launch(ctx)

		case reply := <-c.triggers:
			if inflight != nil {
				reply <- domain.ErrPollInProgress
				continue
			}
			c.log.Debug().Msg("Manual poll triggered")
			inflight = c.launch(ctx)
			reply <- nil

		case selection := <-c.selections:
			if inflight != nil {
				pending = selection
				continue
			}
			c.sink.SelectionChanged(selection)

		case res := <-c.results:
			inflight()
			inflight = nil
			if ctx.Err() != nil {
				c.abort()
				c.log.Info().Msg("Stopping poll loop")
				return
			}
			if err := c.finish(ctx, res); err != nil {
				c.log.Error().Err(err).Msg("Poll state transition failed")
			}
			if pending != nil {
				c.sink.SelectionChanged(pending)
				pending = nil
			}
		}
	}
}

// launch moves to fetching and starts the fetch in the background
func (c *Coordinator) launch(ctx context.Context) context.CancelFunc {
	if err := c.machine.Event(ctx, EventFetch); err != nil {
		c.log.Error().Err(err).Msg("Poll state transition failed")
	}
	c.markAttempt()

	fetchCtx, cancel := context.WithCancel(ctx)
	go func() {
		c.results <- c.fetch(fetchCtx)
	}()
	return cancel
}

// fetch downloads and normalizes one payload. It touches no coordinator state.
func (c *Coordinator) fetch(ctx context.Context) fetchResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	raw, err := c.source.Fetch(ctx)
	if err != nil {
		return fetchResult{err: err, took: time.Since(start)}
	}

	snap, report, err := codec.Normalize(raw, c.now())
	return fetchResult{snap: snap, report: report, err: err, took: time.Since(start)}
}

// finish records the fetch outcome and settles back to idle
func (c *Coordinator) finish(ctx context.Context, res fetchResult) error {
	event := EventPublish
	if res.err != nil {
		event = EventFail
	}
	if err := c.machine.Event(ctx, event, res); err != nil {
		return fmt.Errorf("%s: %w", event, err)
	}
	if err := c.machine.Event(ctx, EventSettle); err != nil {
		return fmt.Errorf("%s: %w", EventSettle, err)
	}
	return nil
}

func (c *Coordinator) abort() {
	// ctx is already done here; the transition must not observe it
	if err := c.machine.Event(context.Background(), EventAbort); err != nil {
		c.log.Error().Err(err).Msg("Poll state transition failed")
	}
}

func (c *Coordinator) enterPublished(_ context.Context, e *fsm.Event) error {
	res := e.Args[0].(fetchResult)
	old := c.snapshot.Swap(res.snap)

	c.mu.Lock()
	c.failures = 0
	c.lastErr = nil
	c.mu.Unlock()

	name := c.Name()
	metrics.ConsecutiveFailures.WithLabelValues(name).Set(0)
	metrics.ObservePoll(name, StatePublished, res.took)

	if w := res.report.Warnings(); w > 0 {
		metrics.NormalizeWarnings.WithLabelValues(name).Add(float64(w))
		c.log.Warn().
			Int("skipped", res.report.Skipped).
			Int("duplicates", res.report.Duplicates).
			Strs("details", res.report.Messages).
			Msg("Payload had malformed entries")
	}

	c.log.Debug().
		Str("shape", res.report.Shape).
		Int("hosts", res.snap.Len()).
		Dur("took", res.took).
		Msg("Poll published")

	c.sink.Published(old, res.snap)
	return nil
}

func (c *Coordinator) enterFailed(_ context.Context, e *fsm.Event) error {
	res := e.Args[0].(fetchResult)
	kind := domain.Classify(res.err)

	c.mu.Lock()
	c.failures++
	c.lastErr = res.err
	consecutive := c.failures
	c.mu.Unlock()

	name := c.Name()
	metrics.PollErrors.WithLabelValues(name, string(kind)).Inc()
	metrics.ConsecutiveFailures.WithLabelValues(name).Set(float64(consecutive))
	metrics.ObservePoll(name, StateFailed, res.took)

	c.log.Warn().
		Err(res.err).
		Str("kind", string(kind)).
		Int("consecutive_failures", consecutive).
		Msg("Poll failed")

	c.sink.Failed(res.err, consecutive)
	return nil
}

func (c *Coordinator) markAttempt() {
	c.mu.Lock()
	c.lastAttempt = c.now()
	c.mu.Unlock()
}

func (c *Coordinator) skip() {
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()

	metrics.PollSkipped.WithLabelValues(c.Name()).Inc()
	c.log.Debug().Msg("Tick skipped, fetch still in flight")
}
