package emu

import (
	"math/rand"
	"testing"

	"github.com/user-none/emss/sh2"
)

// checkOrder fails if the list is not sorted between its sentinels.
func checkOrder(t *testing.T, l *EventList) {
	t.Helper()
	if l.head.prev != nil || l.tail.next != nil {
		t.Fatalf("sentinels linked outside the list")
	}
	for ev := l.head; ev != l.tail; ev = ev.next {
		if ev.next.prev != ev {
			t.Fatalf("broken back link at ts %d", ev.ts)
		}
		if ev.next.ts < ev.ts {
			t.Fatalf("list out of order: %d before %d", ev.ts, ev.next.ts)
		}
	}
}

// --- EventList tests ---

func TestEventList_Empty(t *testing.T) {
	l := NewEventList()
	if l.Next() != sh2.Never {
		t.Errorf("expected Never, got %d", l.Next())
	}
	l.RunDue(1000)
}

func TestEventList_AddOrdersEvents(t *testing.T) {
	l := NewEventList()
	a := NewEvent(func(ts int64) int64 { return sh2.Never })
	b := NewEvent(func(ts int64) int64 { return sh2.Never })
	l.Add(a, 300)
	l.Add(b, 100)

	if l.Next() != 100 {
		t.Errorf("expected 100, got %d", l.Next())
	}
	checkOrder(t, l)
}

func TestEventList_SetEventNTRandom(t *testing.T) {
	l := NewEventList()
	rng := rand.New(rand.NewSource(1))

	evs := make([]*Event, 8)
	for i := range evs {
		evs[i] = NewEvent(func(ts int64) int64 { return sh2.Never })
		l.Add(evs[i], sh2.Never)
	}
	for i := 0; i < 1000; i++ {
		ev := evs[rng.Intn(len(evs))]
		ts := rng.Int63n(10000)
		if rng.Intn(8) == 0 {
			ts = sh2.Never
		}
		l.SetEventNT(ev, ts)
		checkOrder(t, l)

		want := sh2.Never
		for _, e := range evs {
			if e.ts < want {
				want = e.ts
			}
		}
		if l.Next() != want {
			t.Fatalf("expected next %d, got %d", want, l.Next())
		}
	}
}

func TestEventList_NegativeClamped(t *testing.T) {
	l := NewEventList()
	ev := NewEvent(func(ts int64) int64 { return sh2.Never })
	l.Add(ev, -50)
	if ev.Timestamp() != 0 {
		t.Errorf("expected 0, got %d", ev.Timestamp())
	}
	checkOrder(t, l)
}

func TestEventList_RunDueOrder(t *testing.T) {
	l := NewEventList()
	var order []int64
	record := func(ts int64) int64 {
		order = append(order, ts)
		return sh2.Never
	}
	for _, ts := range []int64{50, 10, 30, 70} {
		l.Add(NewEvent(record), ts)
	}

	l.RunDue(50)

	want := []int64{10, 30, 50}
	if len(order) != len(want) {
		t.Fatalf("expected %d events run, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d: expected ts %d, got %d", i, want[i], order[i])
		}
	}
	if l.Next() != 70 {
		t.Errorf("expected 70 left pending, got %d", l.Next())
	}
}

func TestEventList_RunDueReschedules(t *testing.T) {
	l := NewEventList()
	count := 0
	ev := NewEvent(func(ts int64) int64 {
		count++
		return ts + 100
	})
	l.Add(ev, 100)

	l.RunDue(450)
	if count != 4 {
		t.Errorf("expected 4 runs, got %d", count)
	}
	if ev.Timestamp() != 500 {
		t.Errorf("expected next at 500, got %d", ev.Timestamp())
	}
}

func TestEventList_RunDueClampsRefire(t *testing.T) {
	l := NewEventList()
	count := 0
	ev := NewEvent(func(ts int64) int64 {
		count++
		return ts
	})
	l.Add(ev, 10)

	l.RunDue(12)
	if count != 3 {
		t.Errorf("expected 3 runs, got %d", count)
	}
	if ev.Timestamp() != 13 {
		t.Errorf("expected 13, got %d", ev.Timestamp())
	}
}

func TestEventList_HandlerReschedulesOther(t *testing.T) {
	l := NewEventList()
	var ran []string
	b := NewEvent(func(ts int64) int64 {
		ran = append(ran, "b")
		return sh2.Never
	})
	a := NewEvent(func(ts int64) int64 {
		ran = append(ran, "a")
		l.SetEventNT(b, ts+5)
		return sh2.Never
	})
	l.Add(a, 10)
	l.Add(b, sh2.Never)

	l.RunDue(20)
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Errorf("expected [a b], got %v", ran)
	}
}
