package auction

import "time"

// Clock provides the current time. Lifecycle transitions are driven entirely
// by Clock so that tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
