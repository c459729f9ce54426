//go:build rp2040

package main

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"
)

var errClockLost = errors.New("rtc: oscillator stopped, time not valid")

// RTC names files from the DS3231 on the 3.3V bus.
type RTC struct {
	dev ds3231.Device
}

// NewRTC configures the DS3231. A clock that has lost power still
// answers; ReadTime then reports it so files fall back to the bare
// prefix instead of a bogus date.
func NewRTC(bus drivers.I2C) *RTC {
	r := &RTC{dev: ds3231.New(bus)}
	r.dev.Configure()
	return r
}

// ReadTime implements recorder.TimeSource
func (r *RTC) ReadTime() (time.Time, error) {
	if !r.dev.IsTimeValid() {
		return time.Time{}, errClockLost
	}
	return r.dev.ReadTime()
}
