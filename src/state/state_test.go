package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagSetGetToggle(t *testing.T) {
	f := NewFlag(false)
	require.False(t, f.Get())

	f.Set(true)
	require.True(t, f.Get())

	require.False(t, f.Toggle())
	require.False(t, f.Get())
	require.True(t, f.Toggle())
}

func TestFlagConcurrentToggle(t *testing.T) {
	f := NewFlag(false)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Toggle()
			_ = f.Get()
		}()
	}
	wg.Wait()
	// An even number of toggles lands back on the initial value.
	require.False(t, f.Get())
}

func TestRegionStoreReadReturnsCopy(t *testing.T) {
	s := NewRegionStore(CaptureRegion{X: 122, Y: 40, Width: 1162, Height: 586})

	r := s.Read()
	r.X = 999
	require.Equal(t, int32(122), s.Read().X)

	s.Write(CaptureRegion{X: -5, Y: 7, Width: 10, Height: 20})
	require.Equal(t, CaptureRegion{X: -5, Y: 7, Width: 10, Height: 20}, s.Read())
}

func TestRegionStoreNoTornReads(t *testing.T) {
	a := CaptureRegion{X: 1, Y: 1, Width: 1, Height: 1}
	b := CaptureRegion{X: 2, Y: 2, Width: 2, Height: 2}
	s := NewRegionStore(a)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				s.Write(b)
			} else {
				s.Write(a)
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		r := s.Read()
		if r != a && r != b {
			close(done)
			wg.Wait()
			t.Fatalf("torn read: %+v", r)
		}
	}
	close(done)
	wg.Wait()
}
