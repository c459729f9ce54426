package core

import "tinygo.org/x/drivers"

// I2CBusID identifies a specific I2C bus. The recorder board has two:
// the 1.8V bus carrying the gain muxes and the 3.3V bus carrying the
// load switch and RTC.
type I2CBusID uint8

const (
	I2CBus1V8 I2CBusID = 0
	I2CBus3V3 I2CBusID = 1
	numI2CBuses        = 2
)

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

var i2cBuses [numI2CBuses]drivers.I2C

// SetI2CBus is called by target-specific code to register a bus.
func SetI2CBus(id I2CBusID, bus drivers.I2C) {
	if int(id) < len(i2cBuses) {
		i2cBuses[id] = bus
	}
}

// MustI2CBus returns the registered bus or panics if missing.
func MustI2CBus(id I2CBusID) drivers.I2C {
	if int(id) >= len(i2cBuses) || i2cBuses[id] == nil {
		panic("I2C bus not configured")
	}
	return i2cBuses[id]
}
