package service

import (
	"time"

	"github.com/benbjohnson/clock"
)

// deadline is a cancellable timer tagged with a generation. Stopping or
// re-arming bumps the generation, so a callback that was already in flight
// observes a stale generation and must do nothing. The owner's lock guards it.
type deadline struct {
	gen   uint64
	timer *clock.Timer
}

// arm cancels any pending timer and schedules fire with the new generation.
func (d *deadline) arm(c clock.Clock, after time.Duration, fire func(gen uint64)) {
	d.stop()
	gen := d.gen
	d.timer = c.AfterFunc(after, func() { fire(gen) })
}

// stop cancels the pending timer, if any, and invalidates in-flight callbacks.
func (d *deadline) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// current reports whether gen belongs to the armed timer.
func (d *deadline) current(gen uint64) bool {
	return d.timer != nil && d.gen == gen
}
