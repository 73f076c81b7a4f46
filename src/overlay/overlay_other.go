//go:build !windows

package overlay

import (
	"context"
	"image"

	"auto-shake/src/state"
)

// Run is a stub for non-Windows platforms.
func Run(ctx context.Context, cfg Config) error {
	return ErrUnsupported
}

// Select is a stub for non-Windows platforms.
func Select(ctx context.Context, display image.Rectangle) (state.CaptureRegion, error) {
	return state.CaptureRegion{}, ErrUnsupported
}
