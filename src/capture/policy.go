package capture

import (
	"errors"
	"fmt"
	"log"
	"time"

	"auto-shake/src/state"
)

// Stage identifies where in a cycle a failure happened.
type Stage int

const (
	StageEnumerate Stage = iota + 1
	StageCapture
	StageExtract
	StageDispatch
)

func (s Stage) String() string {
	switch s {
	case StageEnumerate:
		return "enumerate"
	case StageCapture:
		return "capture"
	case StageExtract:
		return "extract"
	case StageDispatch:
		return "dispatch"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var errNoDisplay = errors.New("no active displays")

// RegionError reports a capture region with nothing on the snapshot.
type RegionError struct {
	Region        state.CaptureRegion
	Width, Height int
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region %dx%d@(%d,%d) is outside the %dx%d frame",
		e.Region.Width, e.Region.Height, e.Region.X, e.Region.Y, e.Width, e.Height)
}

// Policy decides what a failed stage costs. Backoff is how long the loop waits
// before trying again; Recovered is called once a frame is extracted again.
// Implementations are only called from the loop goroutine.
type Policy interface {
	Backoff(stage Stage, err error) time.Duration
	Recovered()
}

// RetryPolicy skips the cycle and retries after a fixed delay. It logs a
// failure when the failing stage changes, so a region parked off-screen does
// not flood the log every 50 ms.
type RetryPolicy struct {
	Delay time.Duration

	last Stage
}

func NewRetryPolicy(delay time.Duration) *RetryPolicy {
	return &RetryPolicy{Delay: delay}
}

func (p *RetryPolicy) Backoff(stage Stage, err error) time.Duration {
	if stage == StageDispatch {
		log.Printf("Key dispatch failed: %v", err)
		return p.Delay
	}
	if stage != p.last {
		log.Printf("Capture %s failed, retrying every %v: %v", stage, p.Delay, err)
		p.last = stage
	}
	return p.Delay
}

func (p *RetryPolicy) Recovered() {
	if p.last != 0 {
		log.Printf("Capture recovered after %s failures", p.last)
		p.last = 0
	}
}
