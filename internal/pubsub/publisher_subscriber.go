package pubsub

import (
	"errors"
	"sync"

	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/internal/sync_"
)

const DefaultSubscriberBufSize = 1

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

type Publisher[T any] interface {
	SenderCloser[T]
	AddSubscriber(SenderCloser[T]) error
	Subscribe() (ReceiverCloser[T], error)
	SubscribeBufSize(int) (ReceiverCloser[T], error)
}

type subscribers[T any] struct {
	members generic.Set[SenderCloser[T]]
	closed  bool
}

// publisher delivers each value to every subscriber before Send returns, so all subscribers see values in the order
// they were sent. A subscriber that stops receiving blocks the publisher until it is closed.
type publisher[T any] struct {
	sending sync.Mutex
	subs    *sync_.Mutexed[subscribers[T]]
	done    chan struct{}
}

func NewPublisher[T any]() Publisher[T] {
	return &publisher[T]{
		subs: sync_.NewMutexed(subscribers[T]{members: generic.NewSet[SenderCloser[T]]()}),
		done: make(chan struct{}),
	}
}

// Send publishes the value to all current subscribers, dropping any that have been closed. It returns false once the
// publisher is closed.
func (p *publisher[T]) Send(msg T) bool {
	p.sending.Lock()
	defer p.sending.Unlock()
	var targets []SenderCloser[T]
	err := p.subs.Locked(func(s *subscribers[T]) error {
		if s.closed {
			return ErrPublisherClosed
		}
		targets = s.members.Items()
		return nil
	})
	if err != nil {
		return false
	}
	for _, target := range targets {
		if !target.Send(msg) {
			p.remove(target)
		}
	}
	return true
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	return p.SubscribeBufSize(DefaultSubscriberBufSize)
}

func (p *publisher[T]) SubscribeBufSize(bufSize int) (ReceiverCloser[T], error) {
	c := NewChannel[T](bufSize)
	if err := p.AddSubscriber(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *publisher[T]) AddSubscriber(target SenderCloser[T]) error {
	return p.subs.Locked(func(s *subscribers[T]) error {
		if s.closed {
			return ErrPublisherClosed
		}
		s.members.Add(target)
		return nil
	})
}

func (p *publisher[T]) remove(target SenderCloser[T]) {
	_ = p.subs.Locked(func(s *subscribers[T]) error {
		s.members.Remove(target)
		return nil
	})
}

// Close stops the publisher and closes every subscriber. Calling it again does nothing.
func (p *publisher[T]) Close() {
	var targets []SenderCloser[T]
	_ = p.subs.Locked(func(s *subscribers[T]) error {
		if s.closed {
			return nil
		}
		s.closed = true
		targets = s.members.Items()
		s.members.Clear()
		close(p.done)
		return nil
	})
	// Closing the subscribers also releases a Send blocked on one of them
	for _, target := range targets {
		target.Close()
	}
}

func (p *publisher[T]) Closed() <-chan struct{} {
	return p.done
}
