package capture

import (
	"context"
	"image"
	"log"
	"sync/atomic"
	"time"

	"auto-shake/src/detect"
	"auto-shake/src/screenshot"
	"auto-shake/src/state"
)

const (
	DefaultIdleInterval  = 100 * time.Millisecond
	DefaultRetryInterval = 50 * time.Millisecond
	DefaultCooldown      = 500 * time.Millisecond
)

// Outcome is what a single Step did.
type Outcome int

const (
	// Idle: the activation flag was off, nothing was captured.
	Idle Outcome = iota
	// Skipped: no display, capture failed or the region was off-screen.
	Skipped
	// NoMarker: a frame was inspected and nothing was found.
	NoMarker
	// Fired: the marker was found and the dispatcher was invoked.
	Fired
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Skipped:
		return "skipped"
	case NoMarker:
		return "no-marker"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Detector classifies a luma image.
type Detector func(gray *image.Gray) bool

// Options configures a Loop. Zero durations take the defaults; nil Detector,
// Policy and Sleep take the production implementations.
type Options struct {
	Active     *state.Flag
	Region     *state.RegionStore
	Source     screenshot.Source
	Dispatcher Dispatcher
	Detector   Detector
	Policy     Policy
	Sleep      Sleeper

	IdleInterval  time.Duration
	RetryInterval time.Duration
	Cooldown      time.Duration
}

// Stats counts loop outcomes since start.
type Stats struct {
	Cycles         uint64
	Skipped        uint64
	Fired          uint64
	DispatchErrors uint64
}

// Loop samples the capture region while the activation flag is set and fires
// the dispatcher when the marker shows up. It keeps no state between
// iterations besides the counters.
type Loop struct {
	active     *state.Flag
	region     *state.RegionStore
	source     screenshot.Source
	dispatcher Dispatcher
	detector   Detector
	policy     Policy
	sleep      Sleeper

	idle     time.Duration
	retry    time.Duration
	cooldown time.Duration

	cycles         atomic.Uint64
	skipped        atomic.Uint64
	fired          atomic.Uint64
	dispatchErrors atomic.Uint64
}

// New builds a Loop. Active, Region, Source and Dispatcher are required.
func New(opts Options) *Loop {
	l := &Loop{
		active:     opts.Active,
		region:     opts.Region,
		source:     opts.Source,
		dispatcher: opts.Dispatcher,
		detector:   opts.Detector,
		policy:     opts.Policy,
		sleep:      opts.Sleep,
		idle:       opts.IdleInterval,
		retry:      opts.RetryInterval,
		cooldown:   opts.Cooldown,
	}
	if l.idle <= 0 {
		l.idle = DefaultIdleInterval
	}
	if l.retry <= 0 {
		l.retry = DefaultRetryInterval
	}
	if l.cooldown <= 0 {
		l.cooldown = DefaultCooldown
	}
	if l.detector == nil {
		l.detector = detect.MarkerPresent
	}
	if l.policy == nil {
		l.policy = NewRetryPolicy(l.retry)
	}
	if l.sleep == nil {
		l.sleep = sleepContext
	}
	return l
}

// Run repeats Step until ctx is cancelled. It only returns at shutdown.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("Capture loop started (idle=%v retry=%v cooldown=%v)", l.idle, l.retry, l.cooldown)
	wasActive := false
	for ctx.Err() == nil {
		if active := l.active.Get(); active != wasActive {
			log.Printf("Capture loop active=%v", active)
			wasActive = active
		}
		_, wait := l.Step(ctx)
		l.sleep(ctx, wait)
	}
	log.Printf("Capture loop stopped")
	return ctx.Err()
}

// Step runs one capture-extract-detect cycle and returns what happened along
// with how long the caller should wait before the next one. Failures never
// escape; they go through the Policy.
func (l *Loop) Step(ctx context.Context) (Outcome, time.Duration) {
	if !l.active.Get() {
		return Idle, l.idle
	}
	l.cycles.Add(1)

	region := l.region.Read()

	display, ok := screenshot.Primary(l.source.Displays())
	if !ok {
		return l.skip(StageEnumerate, errNoDisplay)
	}

	snapshot, err := l.source.Capture(display)
	if err != nil {
		return l.skip(StageCapture, err)
	}

	gray, ok := detect.Extract(snapshot, region)
	if !ok {
		return l.skip(StageExtract, &RegionError{Region: region, Width: snapshot.Bounds().Dx(), Height: snapshot.Bounds().Dy()})
	}
	l.policy.Recovered()

	if !l.detector(gray) {
		return NoMarker, l.retry
	}

	l.fired.Add(1)
	wait := l.cooldown
	if err := l.dispatcher.Fire(); err != nil {
		l.dispatchErrors.Add(1)
		// The keystroke is lost but the marker was seen: still cool down.
		if d := l.policy.Backoff(StageDispatch, err); d > wait {
			wait = d
		}
	}
	return Fired, wait
}

func (l *Loop) skip(stage Stage, err error) (Outcome, time.Duration) {
	l.skipped.Add(1)
	return Skipped, l.policy.Backoff(stage, err)
}

// Stats returns a snapshot of the counters. Safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:         l.cycles.Load(),
		Skipped:        l.skipped.Load(),
		Fired:          l.fired.Load(),
		DispatchErrors: l.dispatchErrors.Load(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
