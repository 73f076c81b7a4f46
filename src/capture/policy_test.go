package capture

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"auto-shake/src/state"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRetryPolicyLogsOnStageChange(t *testing.T) {
	buf := captureLog(t)
	p := NewRetryPolicy(DefaultRetryInterval)
	err := errors.New("boom")

	for i := 0; i < 5; i++ {
		require.Equal(t, DefaultRetryInterval, p.Backoff(StageCapture, err))
	}
	require.Equal(t, 1, strings.Count(buf.String(), "Capture capture failed"))

	p.Backoff(StageExtract, err)
	require.Equal(t, 1, strings.Count(buf.String(), "Capture extract failed"))

	p.Recovered()
	p.Recovered()
	require.Equal(t, 1, strings.Count(buf.String(), "Capture recovered"))

	p.Backoff(StageCapture, err)
	require.Equal(t, 2, strings.Count(buf.String(), "Capture capture failed"))
}

func TestRetryPolicyDispatchAlwaysLogs(t *testing.T) {
	buf := captureLog(t)
	p := NewRetryPolicy(DefaultRetryInterval)

	p.Backoff(StageDispatch, errors.New("a"))
	p.Backoff(StageDispatch, errors.New("b"))
	require.Equal(t, 2, strings.Count(buf.String(), "Key dispatch failed"))
}

func TestRegionErrorMessage(t *testing.T) {
	err := &RegionError{Region: state.CaptureRegion{X: 2000, Y: 40, Width: 1162, Height: 586}, Width: 1920, Height: 1080}
	require.Equal(t, "region 1162x586@(2000,40) is outside the 1920x1080 frame", err.Error())
}

func TestStageAndOutcomeStrings(t *testing.T) {
	require.Equal(t, "enumerate", StageEnumerate.String())
	require.Equal(t, "stage(9)", Stage(9).String())
	require.Equal(t, "fired", Fired.String())
	require.Equal(t, "unknown", Outcome(42).String())
}
