package domain

import "github.com/jonboulle/clockwork"

// Clock is the time source used to stamp records. Tests substitute
// clockwork.NewFakeClockAt for deterministic timestamps.
type Clock = clockwork.Clock

// NewRealClock returns the wall clock.
func NewRealClock() Clock { return clockwork.NewRealClock() }
