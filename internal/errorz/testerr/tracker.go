// Package testerr makes dependencies fail on chosen calls, so tests can
// check that every failure is handled.
package testerr

import (
	"errors"
	"fmt"
	"sync"
)

// Err is the error returned by failing calls.
var Err = errors.New("test error")

// Tracker counts calls to a dependency and fails the calls it was set up
// to fail. A nil or zero Tracker never fails.
type Tracker struct {
	mu     sync.Mutex
	calls  int
	fail   bool
	at     int
	sticky bool
	err    error
}

// FailAt fails only call i, counting from zero.
func FailAt(i int, err error) *Tracker {
	return &Tracker{fail: true, at: i, err: err}
}

// FailFrom fails call i and every call after it.
func FailFrom(i int, err error) *Tracker {
	return &Tracker{fail: true, at: i, sticky: true, err: err}
}

// Scenarios returns a FailAt and a FailFrom tracker for each of n calls.
func Scenarios(n int, err error) []*Tracker {
	out := make([]*Tracker, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, FailAt(i, err), FailFrom(i, err))
	}
	return out
}

func (t *Tracker) String() string {
	switch {
	case t == nil || !t.fail:
		return "never fails"
	case t.sticky:
		return fmt.Sprintf("fails from call %d", t.at)
	default:
		return fmt.Sprintf("fails call %d", t.at)
	}
}

// Calls returns the number of calls made so far.
func (t *Tracker) Calls() int {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *Tracker) next() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.calls
	t.calls++

	if t.fail && (i == t.at || (t.sticky && i > t.at)) {
		return t.err
	}
	return nil
}

// Do calls f, unless this call should fail.
func (t *Tracker) Do(f func() error) error {
	if err := t.next(); err != nil {
		return err
	}
	return f()
}

// Call is Do for funcs that return a value.
func Call[T any](t *Tracker, f func() (T, error)) (T, error) {
	if err := t.next(); err != nil {
		var zero T
		return zero, err
	}
	return f()
}
