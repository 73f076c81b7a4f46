package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// DefaultKey is the key tapped when the marker shows up.
const DefaultKey = "enter"

// Keyboard taps a single key (press and release) through the OS input queue.
// It satisfies capture.Dispatcher.
type Keyboard struct {
	Key string
}

func NewKeyboard() Keyboard { return Keyboard{Key: DefaultKey} }

func (k Keyboard) Fire() error {
	key := k.Key
	if key == "" {
		key = DefaultKey
	}
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("failed to tap %q: %w", key, err)
	}
	return nil
}
