// Package sequence runs timed input actions: each step is sent, the
// connection is synchronized where required, and holds suspend the caller
// between steps.
package sequence

import (
	"fmt"
	"sync"
	"time"
)

// Syncer waits until the compositor has processed every request sent so far.
type Syncer interface {
	RoundTrip() error
}

type step struct {
	name string
	run  func() error
}

// Sequence is an ordered list of steps. It stops at the first failing step.
type Sequence struct {
	syncer Syncer
	sleep  func(time.Duration)
	locker sync.Locker
	steps  []step
}

// Option configures a Sequence.
type Option func(*Sequence)

// WithSleep replaces time.Sleep for holds.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Sequence) { s.sleep = sleep }
}

// WithLocker releases l for the duration of every hold. l must be held when
// Run is called.
func WithLocker(l sync.Locker) Option {
	return func(s *Sequence) { s.locker = l }
}

// New starts an empty sequence synchronized through syncer.
func New(syncer Syncer, opts ...Option) *Sequence {
	s := &Sequence{syncer: syncer, sleep: time.Sleep}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do appends an action.
func (s *Sequence) Do(name string, f func() error) *Sequence {
	s.steps = append(s.steps, step{name: name, run: f})
	return s
}

// Sync appends a round trip.
func (s *Sequence) Sync() *Sequence {
	return s.Do("sync", s.syncer.RoundTrip)
}

// Hold appends a pause of d.
func (s *Sequence) Hold(d time.Duration) *Sequence {
	return s.Do("hold", func() error {
		if d <= 0 {
			return nil
		}
		if s.locker != nil {
			s.locker.Unlock()
			defer s.locker.Lock()
		}
		s.sleep(d)
		return nil
	})
}

// Press appends press, sync, hold, release, sync.
func (s *Sequence) Press(name string, press, release func() error, hold time.Duration) *Sequence {
	return s.Do(name+" press", press).
		Sync().
		Hold(hold).
		Do(name+" release", release).
		Sync()
}

// Run executes the steps in order.
func (s *Sequence) Run() error {
	for _, st := range s.steps {
		if err := st.run(); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}
