package engine

import (
	"time"

	"grow_controller/internal/clock"
)

// loopClock delivers timer callbacks on the engine goroutine so controllers
// never see concurrent access.
type loopClock struct {
	base clock.Clock
	post func(func()) bool
}

func (c *loopClock) Now() time.Time { return c.base.Now() }

func (c *loopClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return c.base.AfterFunc(d, func() { c.post(f) })
}
