package dma

import (
	"time"

	"magpie/core"
)

// pollsPerClockCheck bounds how often the sync loops read the clock.
// A GPIO read is a few cycles; time.Now is much slower.
const pollsPerClockCheck = 64

// WaitForRisingEdge spins on pin until it sees a low read followed by a
// high read. It gives up with ErrSyncTimeout once timeout has elapsed.
func WaitForRisingEdge(gpio core.GPIODriver, pin core.GPIOPin, timeout time.Duration) error {
	return waitEdge(gpio, pin, time.Now().Add(timeout))
}

// CountRisingEdges waits for n rising edges on pin within timeout.
func CountRisingEdges(gpio core.GPIODriver, pin core.GPIOPin, n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for i := 0; i < n; i++ {
		if err := waitEdge(gpio, pin, deadline); err != nil {
			return err
		}
	}
	return nil
}

func waitEdge(gpio core.GPIODriver, pin core.GPIOPin, deadline time.Time) error {
	polls := 0
	prev := gpio.ReadPin(pin)
	for {
		cur := gpio.ReadPin(pin)
		if !prev && cur {
			core.RecordTiming(core.EvtSyncEdge, 0, uint32(pin), 0)
			return nil
		}
		prev = cur

		polls++
		if polls%pollsPerClockCheck == 0 && time.Now().After(deadline) {
			return core.ErrSyncTimeout
		}
	}
}
