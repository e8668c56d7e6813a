package timectrl

import (
	"fmt"
	"sort"
	"sync"
)

// EventScheduler runs callbacks when simulation time reaches their
// scheduled offset. The engine calls RunDue after each repositioning
// pass; ephemeris sampling is scheduled here.
type EventScheduler interface {
	// Schedule registers f to run once the clock offset reaches at.
	// The returned ID can cancel the event.
	Schedule(at float64, f func()) (id string)

	// Cancel drops a scheduled event. Unknown or already-run IDs are a
	// no-op.
	Cancel(id string)

	// Offset returns the current clock offset.
	Offset() float64

	// RunDue executes every event whose offset is <= the current clock
	// offset. Safe to call repeatedly; events run at most once.
	RunDue()
}

type scheduledEvent struct {
	id        string
	at        float64
	f         func()
	cancelled bool
}

type eventScheduler struct {
	clock SimClock

	mu      sync.Mutex
	counter uint64
	events  []*scheduledEvent // ordered by offset, earliest first
	index   map[string]*scheduledEvent
}

// NewEventScheduler returns a scheduler reading time from the given
// clock. Tests drive it with a fake SimClock.
func NewEventScheduler(clock SimClock) EventScheduler {
	return &eventScheduler{
		clock: clock,
		index: make(map[string]*scheduledEvent),
	}
}

func (s *eventScheduler) Schedule(at float64, f func()) (id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	id = fmt.Sprintf("ev-%d", s.counter)

	ev := &scheduledEvent{id: id, at: at, f: f}
	s.addEventLocked(ev)
	s.index[id] = ev

	return id
}

// addEventLocked inserts preserving offset order. Caller holds s.mu.
func (s *eventScheduler) addEventLocked(ev *scheduledEvent) {
	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].at >= ev.at
	})
	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, id)
	// Removal from s.events is lazy; RunDue skips cancelled events.
}

func (s *eventScheduler) Offset() float64 {
	return s.clock.Snapshot().Offset
}

// popDueLocked removes and returns the earliest non-cancelled due
// event, or nil. Caller holds s.mu.
func (s *eventScheduler) popDueLocked() *scheduledEvent {
	now := s.clock.Snapshot().Offset
	for len(s.events) > 0 {
		ev := s.events[0]
		if ev.cancelled {
			s.events = s.events[1:]
			continue
		}
		if ev.at <= now {
			s.events = s.events[1:]
			return ev
		}
		// Ordered by offset: the rest are in the future too.
		break
	}
	return nil
}

func (s *eventScheduler) RunDue() {
	for {
		s.mu.Lock()
		ev := s.popDueLocked()
		if ev == nil {
			s.mu.Unlock()
			return
		}
		delete(s.index, ev.id)
		s.mu.Unlock()

		// Run outside the lock so callbacks may reschedule.
		if ev.f != nil {
			ev.f()
		}
	}
}
