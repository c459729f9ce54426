package core

// DMAChannelID identifies a hardware DMA channel
type DMAChannelID uint8

// DMAConfig describes one peripheral-to-memory transfer. The channel
// writes Dest, fires its completion callback and continues into the
// reload destination without CPU involvement.
type DMAConfig struct {
	Port       DataPortID // source receive port
	Dest       []byte     // destination of the first transfer
	BurstBytes uint8      // bytes moved per request
	Priority   uint8      // 0 is highest
}

// DMADriver is the abstract DMA controller interface.
type DMADriver interface {
	// AcquireChannel claims a free channel. Implementations return an
	// error wrapping ErrDMA when every channel is in use.
	AcquireChannel() (DMAChannelID, error)

	// ReleaseChannel returns a channel to the free pool
	ReleaseChannel(id DMAChannelID)

	// ConfigureChannel programs a channel without enabling it.
	// onComplete runs in interrupt context once per finished transfer.
	ConfigureChannel(id DMAChannelID, cfg DMAConfig, onComplete func()) error

	// SetReload stores the destination used after the current transfer.
	// Called from the completion interrupt.
	SetReload(id DMAChannelID, dest []byte)

	// EnableChannel starts the channel
	EnableChannel(id DMAChannelID) error

	// DisableChannel stops the channel, abandoning any partial transfer
	DisableChannel(id DMAChannelID) error
}

var dmaDriver DMADriver

// SetDMADriver is called by target-specific code to register its driver.
func SetDMADriver(d DMADriver) {
	dmaDriver = d
}

// MustDMA returns the configured driver or panics if missing.
func MustDMA() DMADriver {
	if dmaDriver == nil {
		panic("DMA driver not configured")
	}
	return dmaDriver
}
