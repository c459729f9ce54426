//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"
)

const (
	// maxWriteStalls is how many zero-progress writes in a row are taken
	// as a disconnected host.
	maxWriteStalls = 10
	writeRetry     = time.Millisecond
)

var errUSBDisconnected = errors.New("usb: host not reading")

// InitUSB configures the CDC-ACM port. TinyGo sets up the descriptors;
// on the RP2040 machine.Serial is the USB CDC device.
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// USBLink is the byte stream carrying the storage link to the host.
type USBLink struct {
	stalls int
}

// NewUSBLink returns a writer over machine.Serial
func NewUSBLink() *USBLink {
	return &USBLink{}
}

// Write sends all of p, retrying partial writes while the host drains the
// endpoint. A host that stops reading fails the write after a few
// retries, which the recorder reports as a storage failure.
func (l *USBLink) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := machine.Serial.Write(p[written:])
		if err != nil {
			return written, err
		}
		if n == 0 {
			l.stalls++
			if l.stalls > maxWriteStalls {
				l.stalls = 0
				return written, errUSBDisconnected
			}
			time.Sleep(writeRetry)
			continue
		}
		l.stalls = 0
		written += n
	}
	return written, nil
}
