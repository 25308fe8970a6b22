// Package fanout delivers published items to a dynamic set of live
// subscribers without ever blocking the publisher.
package fanout

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/metrics"
)

// DefaultQueueSize is the per-subscriber delivery queue size.
const DefaultQueueSize = 256

// Registry maintains the set of live subscribers for one item type.
// Broadcast never blocks: a subscriber whose queue is full has that item
// dropped for it alone. The zero value is not usable; use NewRegistry.
type Registry[T any] struct {
	mu   sync.RWMutex
	subs map[string]*Subscription[T]

	name    string
	dropped atomic.Int64
	log     *slog.Logger
}

// Subscription is a handle to a live delivery queue. It is returned by
// Subscribe and owns its channel; Close is its sole teardown path and is
// safe to call multiple times and concurrently with broadcasts.
type Subscription[T any] struct {
	id   string
	ch   chan T
	reg  *Registry[T]
	once sync.Once
}

// NewRegistry creates an empty subscriber registry. The name is used for
// logging only.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		subs: make(map[string]*Subscription[T]),
		name: name,
		log:  logging.Component("fanout").With("stream", name),
	}
}

// Subscribe registers a new subscriber and returns its handle. Items
// broadcast before this call are never delivered to the new subscriber.
// queueSize <= 0 uses DefaultQueueSize.
func (r *Registry[T]) Subscribe(queueSize int) *Subscription[T] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	sub := &Subscription[T]{
		id:  uuid.NewString(),
		ch:  make(chan T, queueSize),
		reg: r,
	}

	r.mu.Lock()
	r.subs[sub.id] = sub
	n := len(r.subs)
	r.mu.Unlock()

	metrics.Subscribers.WithLabelValues(r.name).Set(float64(n))
	r.log.Debug("subscriber added", "id", sub.id)
	return sub
}

// Broadcast delivers item to every currently registered subscriber.
// Delivery is non-blocking; a full queue drops the item for that
// subscriber only.
func (r *Registry[T]) Broadcast(item T) {
	// Sends happen under the read lock so a concurrent Close (which
	// takes the write lock before closing the channel) can never close
	// a channel mid-send.
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs {
		select {
		case sub.ch <- item:
		default:
			r.dropped.Add(1)
			metrics.BroadcastsDropped.Inc()
		}
	}
}

// Len returns the current number of subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Dropped returns the total number of items dropped due to full
// subscriber queues.
func (r *Registry[T]) Dropped() int64 {
	return r.dropped.Load()
}

// unsubscribe removes the subscription and closes its channel.
func (r *Registry[T]) unsubscribe(sub *Subscription[T]) {
	r.mu.Lock()
	delete(r.subs, sub.id)
	n := len(r.subs)
	r.mu.Unlock()

	// No broadcast can be in flight on this channel once it is out of
	// the map and the write lock has been released.
	close(sub.ch)

	metrics.Subscribers.WithLabelValues(r.name).Set(float64(n))
	r.log.Debug("subscriber removed", "id", sub.id)
}

// C returns the receive side of the subscription's queue. The channel is
// closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// ID returns the subscriber's unique id.
func (s *Subscription[T]) ID() string {
	return s.id
}

// Close unsubscribes and releases the queue. It is idempotent.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.reg.unsubscribe(s)
	})
}
