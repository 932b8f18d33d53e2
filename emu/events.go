package emu

import "github.com/user-none/emss/sh2"

// Event is one entry in the scheduler. Its update function runs the owning
// component up to the event's timestamp and returns the timestamp it wants
// to run at next, or sh2.Never.
type Event struct {
	ts     int64
	update func(ts int64) int64

	prev, next *Event
}

// NewEvent creates an unscheduled event.
func NewEvent(update func(ts int64) int64) *Event {
	return &Event{ts: sh2.Never, update: update}
}

// Timestamp returns when the event is due.
func (ev *Event) Timestamp() int64 {
	return ev.ts
}

// EventList keeps events in non-decreasing timestamp order between two
// sentinels at 0 and sh2.Never. The machine has a handful of event sources
// and most reschedules move an entry by one or two places, so entries are
// relocated with a linear walk.
type EventList struct {
	head *Event
	tail *Event
}

// NewEventList creates an empty list.
func NewEventList() *EventList {
	l := &EventList{
		head: &Event{ts: 0},
		tail: &Event{ts: sh2.Never},
	}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

// Add links ev into the list at ts.
func (l *EventList) Add(ev *Event, ts int64) {
	ev.ts = sh2.Never
	ev.prev = l.tail.prev
	ev.next = l.tail
	l.tail.prev.next = ev
	l.tail.prev = ev
	l.SetEventNT(ev, ts)
}

// SetEventNT moves ev to timestamp ts, walking toward its new position.
func (l *EventList) SetEventNT(ev *Event, ts int64) {
	if ts < 0 {
		ts = 0
	}
	ev.ts = ts

	if ts < ev.prev.ts {
		p := ev.prev
		ev.unlink()
		for ts < p.ts {
			p = p.prev
		}
		ev.insertAfter(p)
	} else if ts > ev.next.ts {
		n := ev.next
		ev.unlink()
		for n.ts < ts {
			n = n.next
		}
		ev.insertAfter(n.prev)
	}
}

// Next returns the timestamp of the earliest event.
func (l *EventList) Next() int64 {
	return l.head.next.ts
}

// RunDue runs every event due at or before upto, earliest first. An event
// that asks to run again at or before its own timestamp is pushed one cycle
// forward.
func (l *EventList) RunDue(upto int64) {
	for {
		ev := l.head.next
		if ev == l.tail || ev.ts > upto {
			return
		}
		ts := ev.ts
		next := ev.update(ts)
		if next <= ts {
			next = ts + 1
		}
		l.SetEventNT(ev, next)
	}
}

func (ev *Event) unlink() {
	ev.prev.next = ev.next
	ev.next.prev = ev.prev
}

func (ev *Event) insertAfter(p *Event) {
	ev.prev = p
	ev.next = p.next
	p.next.prev = ev
	p.next = ev
}
