// Package countdown derives the time remaining until an auction ends.
//
// Values produced here are for display only. Whether a bid is accepted is
// decided by the bidding service against its own clock.
package countdown

import (
	"context"
	"time"

	"art-marketplace/internal/clock"
)

// DefaultInterval is the recompute period for displayed countdowns
const DefaultInterval = time.Second

// Countdown is the remaining time split into display units
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// Remaining returns the time left between now and end, or an expired countdown
func Remaining(end, now time.Time) Countdown {
	left := end.Sub(now)
	if left <= 0 {
		return Countdown{Expired: true}
	}

	// round up so the last value shown before expiry is one second, not zero
	total := int((left + time.Second - 1) / time.Second)
	return Countdown{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// Watch emits the countdown immediately and then on every interval tick.
// The channel is closed after an expired value is sent or when ctx is done.
func Watch(ctx context.Context, clk clock.Clock, end time.Time, interval time.Duration) <-chan Countdown {
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := make(chan Countdown, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			cd := Remaining(end, clk.Now())
			select {
			case out <- cd:
			case <-ctx.Done():
				return
			}
			if cd.Expired {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
