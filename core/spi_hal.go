package core

import "tinygo.org/x/drivers"

// SPIMode represents SPI clock polarity and phase (0-3)
// Mode 0: CPOL=0, CPHA=0 (clock idle low, sample on rising edge)
// Mode 1: CPOL=0, CPHA=1 (clock idle low, sample on falling edge)
// Mode 2: CPOL=1, CPHA=0 (clock idle high, sample on falling edge)
// Mode 3: CPOL=1, CPHA=1 (clock idle high, sample on rising edge)
type SPIMode uint8

// DataPortID identifies one slave-mode receive port. The ADC drives the
// clock on these ports; the MCU only listens.
type DataPortID uint8

// DataPortConfig holds the configuration for a receive port
type DataPortConfig struct {
	Mode        SPIMode
	WordBits    uint8 // bits per received word
	RxThreshold uint8 // FIFO level (bytes) that raises a DMA request
}

// DataPortDriver controls the slave-mode receive ports that carry sample
// data from the ADC.
type DataPortDriver interface {
	// ConfigurePort prepares a port but leaves its receive path disabled
	ConfigurePort(port DataPortID, cfg DataPortConfig) error

	// EnablePort starts accepting data on the port
	EnablePort(port DataPortID) error

	// DisablePort stops the receive path and drains its FIFO
	DisablePort(port DataPortID) error
}

var (
	dataPortDriver DataPortDriver
	configBus      drivers.SPI
)

// SetDataPortDriver is called by target-specific code to register its data ports
func SetDataPortDriver(d DataPortDriver) {
	dataPortDriver = d
}

// MustDataPorts returns the configured data port driver or panics if missing
func MustDataPorts() DataPortDriver {
	if dataPortDriver == nil {
		panic("data port driver not configured")
	}
	return dataPortDriver
}

// SetConfigBus registers the master SPI bus used for ADC register access
func SetConfigBus(bus drivers.SPI) {
	configBus = bus
}

// MustConfigBus returns the ADC register bus or panics if missing
func MustConfigBus() drivers.SPI {
	if configBus == nil {
		panic("config SPI bus not configured")
	}
	return configBus
}
