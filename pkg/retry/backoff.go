package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ScheduleBackOff yields the configured delays in order and then stops.
type ScheduleBackOff struct {
	delays []time.Duration
	next   int
}

func NewScheduleBackOff(delays []time.Duration) *ScheduleBackOff {
	d := make([]time.Duration, len(delays))
	copy(d, delays)
	return &ScheduleBackOff{delays: d}
}

func (b *ScheduleBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.next]
	b.next++
	return d
}

func (b *ScheduleBackOff) Reset() {
	b.next = 0
}

func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = 0
	return exp
}

// DelayFor returns the delay that precedes the given retry (1-based).
func DelayFor(attempt int, delays []time.Duration) time.Duration {
	if attempt < 1 || len(delays) == 0 {
		return 0
	}
	if attempt > len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempt-1]
}
