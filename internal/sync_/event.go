// Package sync_ holds small synchronisation helpers missing from the standard sync package.
package sync_

import "sync"

// Event is a flag that goroutines can wait on. Wait returns a channel that is closed while the flag is set, so it
// composes with select. The zero value is an unset Event.
type Event struct {
	mu     sync.Mutex
	signal chan struct{}
}

func (e *Event) IsSet() bool {
	select {
	case <-e.Wait():
		return true
	default:
		return false
	}
}

// Set raises the flag, releasing all waiters. It reports whether the flag was previously unset.
func (e *Event) Set() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.current()
	select {
	case <-s:
		return false
	default:
		close(s)
		return true
	}
}

// Clear lowers the flag, so later calls to Wait block again. It reports whether the flag was previously set.
func (e *Event) Clear() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.current():
		e.signal = nil
		return true
	default:
		return false
	}
}

func (e *Event) Wait() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current()
}

// current must be called with e.mu held.
func (e *Event) current() chan struct{} {
	if e.signal == nil {
		e.signal = make(chan struct{})
	}
	return e.signal
}
