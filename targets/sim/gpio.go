package sim

import (
	"errors"

	"magpie/core"
)

var ErrPinNotConfigured = errors.New("sim: pin not configured as output")

// GPIO is a pin bank. While the clock enable pin is high, every read of
// the frame chip-select pin returns the opposite level of the last read,
// as if the 384 kHz frame clock were running much faster than the poll.
type GPIO struct {
	level   map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool

	clockEnable core.GPIOPin
	frameCS     core.GPIOPin
}

// NewGPIO creates a bank whose frame chip-select toggles while
// clockEnable is high.
func NewGPIO(clockEnable, frameCS core.GPIOPin) *GPIO {
	return &GPIO{
		level:       make(map[core.GPIOPin]bool),
		outputs:     make(map[core.GPIOPin]bool),
		clockEnable: clockEnable,
		frameCS:     frameCS,
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *GPIO) ConfigureInput(pin core.GPIOPin) error {
	delete(g.outputs, pin)
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.outputs[pin] {
		return ErrPinNotConfigured
	}
	g.level[pin] = value
	return nil
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	if pin == g.frameCS && g.level[g.clockEnable] {
		g.level[pin] = !g.level[pin]
	}
	return g.level[pin]
}

// Level returns the last driven level of pin.
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.level[pin]
}
