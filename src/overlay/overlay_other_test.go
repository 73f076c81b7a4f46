//go:build !windows

package overlay

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStubsReportUnsupported(t *testing.T) {
	require.ErrorIs(t, Run(context.Background(), Config{}), ErrUnsupported)
	_, err := Select(context.Background(), image.Rect(0, 0, 10, 10))
	require.ErrorIs(t, err, ErrUnsupported)
}
