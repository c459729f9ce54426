//go:build rp2040

package main

import (
	"magpie/core"
	"machine"
)

// i2cBusConfig binds a board bus to a controller and pins
type i2cBusConfig struct {
	id        core.I2CBusID
	i2c       *machine.I2C
	sda       machine.Pin
	scl       machine.Pin
	frequency uint32
}

// The gain switches sit behind a level shifter on the 1.8V bus; the load
// switch and RTC are on the 3.3V bus.
var boardI2CBuses = [...]i2cBusConfig{
	{id: core.I2CBus1V8, i2c: machine.I2C0, sda: machine.GPIO16, scl: machine.GPIO17, frequency: 100000},
	{id: core.I2CBus3V3, i2c: machine.I2C1, sda: machine.GPIO18, scl: machine.GPIO19, frequency: 400000},
}

// InitI2CBuses configures both buses and registers them with core.
// machine.I2C already satisfies drivers.I2C.
func InitI2CBuses() error {
	for _, bus := range boardI2CBuses {
		err := bus.i2c.Configure(machine.I2CConfig{
			Frequency: bus.frequency,
			SDA:       bus.sda,
			SCL:       bus.scl,
		})
		if err != nil {
			return core.NewOpError("i2c bus "+core.Itoa(int(bus.id)), core.ErrConfig, err)
		}
		core.SetI2CBus(bus.id, bus.i2c)
	}
	return nil
}
