package jsonrpc

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// Transport sends jsonrpc requests to a node
type Transport interface {
	// Call makes a jsonrpc request and decodes its result into out
	Call(ctx context.Context, method string, out interface{}, params ...interface{}) error

	// Close closes the transport connection if necessary
	Close() error
}

// PubSubTransport is a transport that allows subscriptions
type PubSubTransport interface {
	Transport

	// Subscribe starts a subscription. unsubscribe is the method that ends it.
	Subscribe(ctx context.Context, method, unsubscribe string, params ...interface{}) (*Subscription, error)
}

// Subscription is an ordered stream of notifications. Items are queued without
// bound so a slow reader never makes the transport drop or reorder them.
type Subscription struct {
	ID string

	mu      sync.Mutex
	queue   []jsoniter.RawMessage
	err     error
	done    bool
	notify  chan struct{}
	closeFn func() error
	once    sync.Once
}

func newSubscription(id string, closeFn func() error) *Subscription {
	return &Subscription{
		ID:      id,
		notify:  make(chan struct{}, 1),
		closeFn: closeFn,
	}
}

func (s *Subscription) push(item jsoniter.RawMessage) {
	s.mu.Lock()
	if !s.done {
		s.queue = append(s.queue, item)
	}
	s.mu.Unlock()

	s.wake()
}

// fail ends the stream after the queued items have been read
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if !s.done {
		s.done = true
		s.err = err
	}
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a notification arrives. After the stream ends it returns the
// error that ended it.
func (s *Subscription) Next(ctx context.Context) (jsoniter.RawMessage, error) {
	for {
		s.mu.Lock()

		if len(s.queue) > 0 {
			item := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			return item, nil
		}

		if s.done {
			err := s.err
			s.mu.Unlock()

			return nil, err
		}

		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close unsubscribes and ends the stream. Queued items are discarded.
func (s *Subscription) Close() error {
	var err error

	s.once.Do(func() {
		s.mu.Lock()
		s.queue = nil
		s.mu.Unlock()

		s.fail(ErrSubscriptionClosed)

		if s.closeFn != nil {
			err = s.closeFn()
		}
	})

	return err
}
