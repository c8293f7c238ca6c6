// Package pubsub fans values out from one sender to any number of subscribers over Go channels.
package pubsub

import (
	"sync"
)

type Sender[T any] interface {
	// Send delivers a value, blocking until there is room for it. It returns false if the value was not delivered
	// because the receiving end is closed.
	Send(T) bool
}

type Receiver[T any] interface {
	Receive() <-chan T
}

type Closer interface {
	Close()
	Closed() <-chan struct{}
}

type SenderCloser[T any] interface {
	Sender[T]
	Closer
}

type ReceiverCloser[T any] interface {
	Receiver[T]
	Closer
}

type Channel[T any] interface {
	Sender[T]
	Receiver[T]
	Closer
}

// channel is a buffered chan that may be closed while senders are still blocked on it.
type channel[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
	// Held for reading by every Send in progress, and for writing while the underlying chan is closed.
	inflight sync.RWMutex
}

func NewChannel[T any](bufSize int) Channel[T] {
	return &channel[T]{
		ch:   make(chan T, bufSize),
		done: make(chan struct{}),
	}
}

func (c *channel[T]) Receive() <-chan T {
	return c.ch
}

func (c *channel[T]) Send(msg T) bool {
	c.inflight.RLock()
	defer c.inflight.RUnlock()
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Close releases any blocked senders, makes all later sends fail, and then closes the receiving end. Values already
// buffered can still be received. Calling Close more than once is harmless.
func (c *channel[T]) Close() {
	c.once.Do(func() {
		close(c.done)
		c.inflight.Lock()
		close(c.ch)
		c.inflight.Unlock()
	})
}

func (c *channel[T]) Closed() <-chan struct{} {
	return c.done
}
