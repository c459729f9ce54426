//go:build rp2040

package main

import (
	"magpie/core"
	"machine"
)

// spiBusConfig specifies which SPI controller and GPIO pins a bus uses
type spiBusConfig struct {
	spi  *machine.SPI // SPI controller (SPI0 or SPI1)
	sck  machine.Pin  // Clock pin
	mosi machine.Pin  // Master Out Slave In
	miso machine.Pin  // Master In Slave Out
	mode uint8
	rate uint32
}

// configBusPins is the converter register bus. The AD4630 accepts mode 0
// up to 80 MHz on this interface; register traffic is a few bytes per
// session so a conservative rate is used.
var configBusPins = spiBusConfig{
	spi:  machine.SPI0,
	sck:  machine.GPIO2,
	mosi: machine.GPIO3,
	miso: machine.GPIO4,
	mode: 0,
	rate: 4000000,
}

// InitConfigBus configures the register bus and registers it with core.
// machine.SPI already satisfies drivers.SPI.
func InitConfigBus() error {
	bus := configBusPins
	err := bus.spi.Configure(machine.SPIConfig{
		Frequency: bus.rate,
		SCK:       bus.sck,
		SDO:       bus.mosi, // SDO = Serial Data Out (MOSI)
		SDI:       bus.miso, // SDI = Serial Data In (MISO)
		Mode:      bus.mode,
	})
	if err != nil {
		return core.NewOpError("config bus", core.ErrConfig, err)
	}
	core.SetConfigBus(bus.spi)
	return nil
}
