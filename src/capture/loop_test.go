package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-shake/src/screenshot"
	"auto-shake/src/state"
)

// recorder is a shared event log for the fakes below.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeSource struct {
	rec        *recorder
	displays   []screenshot.Display
	frame      *image.RGBA
	captureErr error
	captures   int
}

func (s *fakeSource) Displays() []screenshot.Display {
	return s.displays
}

func (s *fakeSource) Capture(d screenshot.Display) (*image.RGBA, error) {
	s.captures++
	if s.rec != nil {
		s.rec.add("capture")
	}
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return s.frame, nil
}

func newFakeSource(rec *recorder) *fakeSource {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 200))
	return &fakeSource{
		rec:      rec,
		displays: []screenshot.Display{{Index: 0, Bounds: image.Rect(0, 0, 200, 200)}},
		frame:    frame,
	}
}

// stopAfter returns a sleeper that logs every wait and cancels after n waits.
func stopAfter(rec *recorder, n int, cancel context.CancelFunc) Sleeper {
	count := 0
	return func(ctx context.Context, d time.Duration) {
		rec.add("sleep %v", d)
		count++
		if count >= n {
			cancel()
		}
	}
}

type recordingPolicy struct {
	stages    []Stage
	recovered int
}

func (p *recordingPolicy) Backoff(stage Stage, err error) time.Duration {
	p.stages = append(p.stages, stage)
	return DefaultRetryInterval
}

func (p *recordingPolicy) Recovered() { p.recovered++ }

func TestRunIdleNeverCaptures(t *testing.T) {
	rec := &recorder{}
	src := newFakeSource(rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := 0
	l := New(Options{
		Active:     state.NewFlag(false),
		Region:     state.NewRegionStore(state.CaptureRegion{X: 0, Y: 0, Width: 100, Height: 100}),
		Source:     src,
		Dispatcher: DispatcherFunc(func() error { fired++; return nil }),
		Sleep:      stopAfter(rec, 10, cancel),
	})

	err := l.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, src.captures)
	require.Equal(t, 0, fired)
	require.Len(t, rec.events, 10)
	for _, ev := range rec.events {
		require.Equal(t, "sleep 100ms", ev)
	}
	require.Equal(t, Stats{}, l.Stats())
}

func TestRunFiresOnceThenCoolsDown(t *testing.T) {
	rec := &recorder{}
	src := newFakeSource(rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detections := 0
	l := New(Options{
		Active: state.NewFlag(true),
		Region: state.NewRegionStore(state.CaptureRegion{X: 10, Y: 10, Width: 50, Height: 50}),
		Source: src,
		Dispatcher: DispatcherFunc(func() error {
			rec.add("fire")
			return nil
		}),
		Detector: func(gray *image.Gray) bool {
			detections++
			return detections == 1
		},
		Sleep: stopAfter(rec, 3, cancel),
	})

	require.ErrorIs(t, l.Run(ctx), context.Canceled)
	require.Equal(t, []string{
		"capture", "fire", "sleep 500ms",
		"capture", "sleep 50ms",
		"capture", "sleep 50ms",
	}, rec.events)

	stats := l.Stats()
	assert.Equal(t, uint64(3), stats.Cycles)
	assert.Equal(t, uint64(1), stats.Fired)
	assert.Equal(t, uint64(0), stats.Skipped)
}

func TestStepDetectsRealMarker(t *testing.T) {
	src := newFakeSource(nil)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 50; y < 120; y++ {
		for x := 60; x < 130; x++ {
			src.frame.SetRGBA(x, y, white)
		}
	}

	fired := 0
	l := New(Options{
		Active:     state.NewFlag(true),
		Region:     state.NewRegionStore(state.CaptureRegion{X: 40, Y: 40, Width: 150, Height: 150}),
		Source:     src,
		Dispatcher: DispatcherFunc(func() error { fired++; return nil }),
	})

	outcome, wait := l.Step(context.Background())
	require.Equal(t, Fired, outcome)
	require.Equal(t, DefaultCooldown, wait)
	require.Equal(t, 1, fired)
}

func TestStepFailuresAreSkipped(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(s *fakeSource)
		region state.CaptureRegion
		stage  Stage
	}{
		{
			name:   "no displays",
			setup:  func(s *fakeSource) { s.displays = nil },
			region: state.CaptureRegion{Width: 10, Height: 10},
			stage:  StageEnumerate,
		},
		{
			name:   "capture error",
			setup:  func(s *fakeSource) { s.captureErr = errors.New("device lost") },
			region: state.CaptureRegion{Width: 10, Height: 10},
			stage:  StageCapture,
		},
		{
			name:   "region off screen",
			setup:  func(s *fakeSource) {},
			region: state.CaptureRegion{X: 500, Y: 0, Width: 10, Height: 10},
			stage:  StageExtract,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(nil)
			tt.setup(src)
			policy := &recordingPolicy{}
			detectorCalled := false
			l := New(Options{
				Active:     state.NewFlag(true),
				Region:     state.NewRegionStore(tt.region),
				Source:     src,
				Dispatcher: DispatcherFunc(func() error { t.Fatal("must not fire"); return nil }),
				Detector:   func(*image.Gray) bool { detectorCalled = true; return true },
				Policy:     policy,
			})

			outcome, wait := l.Step(context.Background())
			require.Equal(t, Skipped, outcome)
			require.Equal(t, DefaultRetryInterval, wait)
			require.Equal(t, []Stage{tt.stage}, policy.stages)
			require.False(t, detectorCalled)
			require.Equal(t, uint64(1), l.Stats().Skipped)
		})
	}
}

func TestStepDispatchErrorStillCoolsDown(t *testing.T) {
	policy := &recordingPolicy{}
	l := New(Options{
		Active:     state.NewFlag(true),
		Region:     state.NewRegionStore(state.CaptureRegion{Width: 10, Height: 10}),
		Source:     newFakeSource(nil),
		Dispatcher: DispatcherFunc(func() error { return errors.New("no input device") }),
		Detector:   func(*image.Gray) bool { return true },
		Policy:     policy,
	})

	outcome, wait := l.Step(context.Background())
	require.Equal(t, Fired, outcome)
	require.Equal(t, DefaultCooldown, wait)
	require.Equal(t, []Stage{StageDispatch}, policy.stages)
	require.Equal(t, uint64(1), l.Stats().DispatchErrors)
}

func TestStepReadsRegionEachIteration(t *testing.T) {
	store := state.NewRegionStore(state.CaptureRegion{X: 0, Y: 0, Width: 30, Height: 20})
	var sizes []image.Point
	l := New(Options{
		Active:     state.NewFlag(true),
		Region:     store,
		Source:     newFakeSource(nil),
		Dispatcher: DispatcherFunc(func() error { return nil }),
		Detector: func(gray *image.Gray) bool {
			sizes = append(sizes, gray.Bounds().Size())
			return false
		},
	})

	l.Step(context.Background())
	store.Write(state.CaptureRegion{X: 190, Y: 190, Width: 30, Height: 20})
	l.Step(context.Background())

	require.Equal(t, []image.Point{{X: 30, Y: 20}, {X: 10, Y: 10}}, sizes)
}

func TestStepRecoveredAfterFailure(t *testing.T) {
	src := newFakeSource(nil)
	src.captureErr = errors.New("busy")
	policy := &recordingPolicy{}
	l := New(Options{
		Active:     state.NewFlag(true),
		Region:     state.NewRegionStore(state.CaptureRegion{Width: 10, Height: 10}),
		Source:     src,
		Dispatcher: DispatcherFunc(func() error { return nil }),
		Policy:     policy,
	})

	outcome, _ := l.Step(context.Background())
	require.Equal(t, Skipped, outcome)

	src.captureErr = nil
	outcome, wait := l.Step(context.Background())
	require.Equal(t, NoMarker, outcome)
	require.Equal(t, DefaultRetryInterval, wait)
	require.Equal(t, 1, policy.recovered)
}

func TestOptionsOverrideIntervals(t *testing.T) {
	l := New(Options{
		Active:       state.NewFlag(false),
		Region:       state.NewRegionStore(state.CaptureRegion{}),
		Source:       newFakeSource(nil),
		Dispatcher:   DispatcherFunc(func() error { return nil }),
		IdleInterval: 7 * time.Millisecond,
	})
	outcome, wait := l.Step(context.Background())
	require.Equal(t, Idle, outcome)
	require.Equal(t, 7*time.Millisecond, wait)
}

func TestSleepContextReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepContext(ctx, time.Hour)
	require.Less(t, time.Since(start), time.Second)
}
