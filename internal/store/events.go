package store

import (
	"sync/atomic"
	"time"
)

// EventType identifies a cache change.
type EventType string

const (
	EventAdded     EventType = "content.added"
	EventUpdated   EventType = "content.updated"
	EventRemoved   EventType = "content.removed"
	EventRefreshed EventType = "list.refreshed"
)

// Event is broadcast to subscribers after the cache changes.
type Event struct {
	Type EventType
	// ID is the affected content id; empty for list-wide events.
	ID string
}

// broker fans cache change events out to subscribers.
//
// Concurrency model: a single internal loop owns the subscriber set and a
// refresh-coalescing timestamp. Public methods communicate with the loop
// through channels, so no mutexes are required.
type broker struct {
	refreshMin time.Duration

	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newBroker(refreshCoalesce time.Duration) *broker {
	if refreshCoalesce <= 0 {
		refreshCoalesce = time.Second
	}
	b := &broker{
		refreshMin:    refreshCoalesce,
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *broker) run() {
	defer close(b.stopped)

	subs := make(map[chan Event]struct{})
	var lastRefresh time.Time

	deliver := func(ev Event) {
		for ch := range subs {
			select {
			case ch <- ev:
			default:
				// Subscriber buffer full; skip to avoid blocking the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			if ev.Type == EventRefreshed {
				now := time.Now()
				if now.Sub(lastRefresh) < b.refreshMin {
					continue
				}
				lastRefresh = now
			}
			deliver(ev)
		}
	}
}

func (b *broker) subscribe() chan Event {
	ch := make(chan Event, 16)
	select {
	case b.subscribeCh <- ch:
	case <-b.stopCh:
		close(ch)
	}
	return ch
}

func (b *broker) unsubscribe(ch chan Event) {
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopCh:
	}
}

func (b *broker) publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	default:
	}
}

func (b *broker) close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
		<-b.stopped
	}
}
