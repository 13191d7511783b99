// Package clock abstracts time so timer-driven state machines can be tested
// without sleeping.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock provides the current time and scheduled callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type workClock struct {
	c clockwork.Clock
}

// Real returns a Clock backed by the system time
func Real() Clock {
	return Wrap(clockwork.NewRealClock())
}

// Wrap adapts a clockwork clock. A clockwork fake runs AfterFunc callbacks on
// their own goroutines, so tests driving one must wait for the effects of an
// Advance; use Fake when callbacks have to run inside Advance.
func Wrap(c clockwork.Clock) Clock {
	return workClock{c: c}
}

func (w workClock) Now() time.Time {
	return w.c.Now()
}

func (w workClock) AfterFunc(d time.Duration, f func()) Timer {
	return w.c.AfterFunc(d, f)
}
