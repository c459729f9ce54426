//go:build rp2040

package main

import (
	"errors"

	"magpie/core"
	"machine"
)

var errPinNotOutput = errors.New("gpio: pin not configured as output")

// RPGPIODriver implements core.GPIODriver on the RP2040's SIO pins.
type RPGPIODriver struct {
	// Track configured pins to prevent reconfiguration
	outputs map[core.GPIOPin]machine.Pin
	inputs  map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		outputs: make(map[core.GPIOPin]machine.Pin),
		inputs:  make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.outputs[pin]; exists {
		return nil
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	delete(d.inputs, pin)
	d.outputs[pin] = p
	return nil
}

// ConfigureInput configures a floating input. The chip-select monitor is
// driven by the converter so no pull is wanted.
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	if _, exists := d.inputs[pin]; exists {
		return nil
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	delete(d.outputs, pin)
	d.inputs[pin] = p
	return nil
}

// SetPin drives an output pin
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, exists := d.outputs[pin]
	if !exists {
		return errPinNotOutput
	}
	p.Set(value)
	return nil
}

// ReadPin goes straight to the pin register; the sync loops call it
// hundreds of thousands of times a second.
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}
