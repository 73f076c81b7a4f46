package capture

// Dispatcher synthesizes the response to a detection. input.Keyboard is the
// production implementation.
type Dispatcher interface {
	Fire() error
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func() error

func (f DispatcherFunc) Fire() error { return f() }
