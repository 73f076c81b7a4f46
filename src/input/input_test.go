package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeyboardUsesEnter(t *testing.T) {
	require.Equal(t, "enter", NewKeyboard().Key)
}

func TestZeroKeyboardKeepsEmptyKey(t *testing.T) {
	// Fire falls back to DefaultKey; the struct itself is left alone.
	require.Equal(t, "", Keyboard{}.Key)
}
