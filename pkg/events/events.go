// Package events implements the invalidation event bus: writers never let
// caches read storage directly to stay fresh; they publish an
// invalidation Event describing which keys, labels or types changed, and
// caches subscribe and react. Same broadcast-with-buffered-subscribers
// shape as a cluster event broker, different event vocabulary.
package events

import (
	"sync"
	"time"
)

// Kind identifies what changed.
type Kind string

const (
	KindNodeCreated   Kind = "node.created"
	KindNodeDeleted   Kind = "node.deleted"
	KindNodePropSet   Kind = "node.prop_set"
	KindRelCreated    Kind = "relationship.created"
	KindRelDeleted    Kind = "relationship.deleted"
	KindRelPropSet    Kind = "relationship.prop_set"
	KindSchemaChanged Kind = "schema.changed"
)

// Event is a single invalidation notice. LabelIDs/TypeIDs/NodeIDs are the
// affected scopes; caches use them to decide which entries to drop.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	LabelIDs  []uint32
	TypeIDs   []uint32
	NodeIDs   []uint64
}

// Subscriber is a buffered channel of invalidation events.
type Subscriber chan Event

// Broker fans out invalidation events to every subscriber (the query cache,
// the relationship cache, and anything else that wants to react to writes).
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a broker with a bounded internal queue.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's dispatch loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts dispatch. Subscriber channels stay open; Unsubscribe closes
// them.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// Subscribe registers a new listener.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 128)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a listener.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish enqueues an event for dispatch. It blocks while the queue is
// full and the broker is running; once the broker is stopped it returns
// without blocking, and the event may be dropped.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- ev:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case ev := <-b.eventCh:
			b.broadcast(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
			// Subscriber is backed up; invalidation is a hint, not a guarantee
			// of immediate delivery, so drop rather than block the writer.
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
