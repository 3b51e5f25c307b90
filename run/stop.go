package run

import (
	"sync"
	"sync/atomic"
)

// Stop is the cooperative stop condition shared by every worker of a run. Workers
// poll Stopped; anything else may wait on Done.
type Stop struct {
	flag atomic.Bool
	once sync.Once
	done chan struct{}
}

func NewStop() *Stop {
	return &Stop{done: make(chan struct{})}
}

// Set raises the flag. Calling it more than once is harmless.
func (s *Stop) Set() {
	s.once.Do(func() {
		s.flag.Store(true)
		close(s.done)
	})
}

// Stopped reports whether Set has been called.
func (s *Stop) Stopped() bool {
	return s.flag.Load()
}

// Done is closed by the first Set.
func (s *Stop) Done() <-chan struct{} {
	return s.done
}
