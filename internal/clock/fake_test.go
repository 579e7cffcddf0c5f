package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFuncFiresAtDeadline(t *testing.T) {
	clock := Fake(epoch)
	fired := 0
	clock.AfterFunc(10*time.Second, func() { fired++ })

	clock.Advance(9 * time.Second)
	if fired != 0 {
		t.Fatalf("fired before deadline")
	}
	clock.Advance(1 * time.Second)
	if fired != 1 {
		t.Fatalf("fired = %d at deadline, want 1", fired)
	}
	clock.Advance(time.Minute)
	if fired != 1 {
		t.Fatalf("one-shot callback fired %d times", fired)
	}
}

func TestFakeClockAfterFuncOrder(t *testing.T) {
	clock := Fake(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	clock.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}
	if timer.Stop() {
		t.Fatal("second Stop returned true")
	}
	clock.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if n := clock.PendingCount(); n != 0 {
		t.Fatalf("PendingCount = %d, want 0", n)
	}
}

func TestFakeClockRearmFromCallback(t *testing.T) {
	clock := Fake(epoch)
	var fires []time.Time
	clock.AfterFunc(2*time.Second, func() {
		fires = append(fires, clock.Now())
		clock.AfterFunc(2*time.Second, func() { fires = append(fires, clock.Now()) })
	})

	clock.Advance(3 * time.Second)
	if len(fires) != 1 {
		t.Fatalf("fires after 3s = %d, want 1", len(fires))
	}
	if clock.PendingCount() != 1 {
		t.Fatalf("re-armed callback not pending")
	}
	clock.Advance(2 * time.Second)
	if len(fires) != 2 {
		t.Fatalf("fires after 5s = %d, want 2", len(fires))
	}
}

func TestFakeClockAfterFuncNonPositive(t *testing.T) {
	clock := Fake(epoch)
	fired := false
	clock.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatal("AfterFunc(0) did not run synchronously")
	}
}
