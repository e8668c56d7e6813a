package timectrl

import (
	"testing"
	"time"
)

// fakeClock implements SimClock with a directly settable offset.
type fakeClock struct {
	offset float64
}

func (f *fakeClock) Snapshot() SimulationTime {
	return SimulationTime{Offset: f.offset, Scale: 1, Playing: true}
}

func (f *fakeClock) Now() time.Time {
	return J2000
}

func TestEventScheduler_RunsDueEventsInOrder(t *testing.T) {
	clock := &fakeClock{}
	s := NewEventScheduler(clock)

	var ran []string
	s.Schedule(5, func() { ran = append(ran, "late") })
	s.Schedule(1, func() { ran = append(ran, "early") })
	s.Schedule(3, func() { ran = append(ran, "middle") })

	s.RunDue()
	if len(ran) != 0 {
		t.Fatalf("events ran before their offset: %v", ran)
	}

	clock.offset = 3
	s.RunDue()
	if len(ran) != 2 || ran[0] != "early" || ran[1] != "middle" {
		t.Fatalf("ran = %v, want [early middle]", ran)
	}

	clock.offset = 10
	s.RunDue()
	if len(ran) != 3 || ran[2] != "late" {
		t.Fatalf("ran = %v, want late appended", ran)
	}
}

func TestEventScheduler_EventsRunOnce(t *testing.T) {
	clock := &fakeClock{offset: 100}
	s := NewEventScheduler(clock)

	calls := 0
	s.Schedule(1, func() { calls++ })

	s.RunDue()
	s.RunDue()
	if calls != 1 {
		t.Errorf("event ran %d times, want 1", calls)
	}
}

func TestEventScheduler_Cancel(t *testing.T) {
	clock := &fakeClock{}
	s := NewEventScheduler(clock)

	ran := false
	id := s.Schedule(2, func() { ran = true })
	s.Cancel(id)
	s.Cancel(id)        // double cancel is a no-op
	s.Cancel("ev-9999") // unknown ID is a no-op

	clock.offset = 5
	s.RunDue()
	if ran {
		t.Errorf("cancelled event still ran")
	}
}

func TestEventScheduler_CallbackMayReschedule(t *testing.T) {
	clock := &fakeClock{offset: 1}
	s := NewEventScheduler(clock)

	hops := 0
	var hop func()
	hop = func() {
		hops++
		if hops < 3 {
			s.Schedule(float64(hops), hop)
		}
	}
	s.Schedule(0.5, hop)

	// All reschedules land at or before the current offset, so one
	// RunDue drains the chain.
	s.RunDue()
	if hops != 3 {
		t.Errorf("hops = %d, want 3", hops)
	}
}

func TestEventScheduler_Offset(t *testing.T) {
	clock := &fakeClock{offset: 7.5}
	s := NewEventScheduler(clock)
	if got := s.Offset(); got != 7.5 {
		t.Errorf("Offset() = %v, want 7.5", got)
	}
}
