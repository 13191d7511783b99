package clock

import (
	"testing"
	"time"
)

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var order []string
	var firedAt []time.Duration

	c.AfterFunc(3*time.Second, func() {
		order = append(order, "b")
		firedAt = append(firedAt, c.Now().Sub(time.Unix(0, 0)))
	})
	c.AfterFunc(time.Second, func() {
		order = append(order, "a")
		firedAt = append(firedAt, c.Now().Sub(time.Unix(0, 0)))
	})

	c.Advance(2 * time.Second)
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("after 2s order = %v, want [a]", order)
	}

	c.Advance(time.Second)
	if len(order) != 2 || order[1] != "b" {
		t.Fatalf("after 3s order = %v, want [a b]", order)
	}
	if firedAt[0] != time.Second || firedAt[1] != 3*time.Second {
		t.Errorf("fired at %v, want [1s 3s]", firedAt)
	}
}

func TestFake_StopAndPending(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if n := c.Pending(); n != 1 {
		t.Errorf("Pending() = %d, want 1", n)
	}
	if !timer.Stop() {
		t.Error("Stop() = false, want true for a pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestFake_CallbackCanScheduleWithinAdvance(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(10*time.Second, tick)
	}
	c.AfterFunc(10*time.Second, tick)

	c.Advance(35 * time.Second)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
