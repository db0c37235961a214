package docstore

import (
	"context"
	"sync"
)

// Hub fans snapshots out to the subscribers of each collection. Every
// subscriber owns a delivery goroutine and a one-slot mailbox: a snapshot
// published while the previous one is still pending replaces it, so a slow
// subscriber only ever sees the latest state.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

type subscriber struct {
	hub        *Hub
	collection string
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	mu         sync.Mutex
	pending    []Record
	hasPending bool
	err        error

	wake chan struct{}
	done chan struct{}
	once sync.Once
	stop func() bool
}

// Add registers a subscriber. When initial is non-nil it is queued as the
// first snapshot. The subscription ends on Unsubscribe, on ctx cancellation
// or after an error delivered through Fail.
func (h *Hub) Add(ctx context.Context, collection string, initial []Record, onSnapshot SnapshotFunc, onError ErrorFunc) Subscription {
	s := &subscriber{
		hub:        h,
		collection: collection,
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[collection] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	if initial != nil {
		s.offer(CloneRecords(initial))
	}

	stop := context.AfterFunc(ctx, s.Unsubscribe)
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()

	go s.run()

	return s
}

// Publish queues a snapshot for every subscriber of collection.
func (h *Hub) Publish(collection string, records []Record) {
	for _, s := range h.snapshot(collection) {
		s.offer(CloneRecords(records))
	}
}

// Fail delivers err to every subscriber of collection and detaches them.
func (h *Hub) Fail(collection string, err error) {
	for _, s := range h.snapshot(collection) {
		s.fail(err)
	}
}

// FailAll delivers err to every subscriber of every collection.
func (h *Hub) FailAll(err error) {
	for _, c := range h.Collections() {
		h.Fail(c, err)
	}
}

// Close detaches every subscriber without notifying them.
func (h *Hub) Close() {
	for _, c := range h.Collections() {
		for _, s := range h.snapshot(c) {
			s.Unsubscribe()
		}
	}
}

// Count reports how many subscribers a collection has.
func (h *Hub) Count(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

// Collections lists collections with at least one subscriber.
func (h *Hub) Collections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for c, set := range h.subs {
		if len(set) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) snapshot(collection string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[collection]
	out := make([]*subscriber, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.collection]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.collection)
		}
	}
}

func (s *subscriber) offer(records []Record) {
	s.mu.Lock()
	s.pending, s.hasPending = records, true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) fail(err error) {
	s.hub.remove(s)
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		records, has, err := s.pending, s.hasPending, s.err
		s.pending, s.hasPending = nil, false
		s.mu.Unlock()

		if s.closed() {
			return
		}
		if has && s.onSnapshot != nil {
			s.onSnapshot(records)
		}
		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			s.Unsubscribe()
			return
		}
	}
}

// Unsubscribe implements Subscription.
func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)

		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}
