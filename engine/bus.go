package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/logger"
)

// subscriber is one registration on a project. Exactly one of ch or fn is set.
type subscriber struct {
	id        uint64
	projectID string

	ch     chan core.Event
	fn     func(core.Event)
	mu     sync.Mutex // guards sends on ch against close
	closed atomic.Bool
}

// deliver hands ev to the subscriber. Channel sends never block; a full
// buffer drops the event and reports false.
func (s *subscriber) deliver(ev core.Event, log logger.Logger) bool {
	if s.closed.Load() {
		return true
	}
	if s.fn != nil {
		defer func() {
			if r := recover(); r != nil {
				log.Error("subscriber callback panicked", logger.Fields{
					"project_id": s.projectID,
					"event_type": string(ev.Type),
					"panic":      fmt.Sprint(r),
				})
			}
		}()
		s.fn(ev)
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// close marks the subscriber closed and closes its channel. Reports whether this call closed it.
func (s *subscriber) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	if s.ch != nil {
		close(s.ch)
	}
	return true
}

// bus fans events out to per-project subscribers in registration order.
type bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	nextID uint64
	log    logger.Logger
}

func newBus(log logger.Logger) *bus {
	return &bus{subs: make(map[string][]*subscriber), log: log}
}

func (b *bus) add(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s.id = b.nextID
	b.subs[s.projectID] = append(b.subs[s.projectID], s)
	Subscribers.Inc()
}

// remove unregisters s. Calling it again is a no-op.
func (b *bus) remove(s *subscriber) {
	if !s.close() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.projectID]
	for i, other := range list {
		if other.id == s.id {
			b.subs[s.projectID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[s.projectID]) == 0 {
		delete(b.subs, s.projectID)
	}
	Subscribers.Dec()
}

// publish delivers ev to every current subscriber of its project.
// The registry lock is released before delivery so callbacks may unsubscribe.
func (b *bus) publish(ev core.Event) {
	b.mu.RLock()
	targets := append([]*subscriber(nil), b.subs[ev.Project.ID]...)
	b.mu.RUnlock()

	EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	for _, s := range targets {
		if !s.deliver(ev, b.log) {
			EventsDropped.Inc()
			b.log.Warn("subscriber buffer full, event dropped", logger.Fields{
				"project_id": ev.Project.ID,
				"event_type": string(ev.Type),
			})
		}
	}
}

// closeAll unregisters every subscriber.
func (b *bus) closeAll() {
	b.mu.Lock()
	all := b.subs
	b.subs = make(map[string][]*subscriber)
	b.mu.Unlock()

	for _, list := range all {
		for _, s := range list {
			if s.close() {
				Subscribers.Dec()
			}
		}
	}
}

func (b *bus) count(projectID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[projectID])
}

// Subscription is a channel registration on one project's events.
type Subscription struct {
	// C receives events until Unsubscribe or Engine.Close, then is closed.
	C <-chan core.Event

	sub *subscriber
	bus *bus
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.sub)
}
