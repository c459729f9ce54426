//go:build tinygo

package core

import "runtime/interrupt"

// InterruptState is the saved interrupt mask
type InterruptState = interrupt.State

// DisableInterrupts masks interrupts and returns the previous state.
// Keep the masked section short: a chunk interrupt is due every few ms.
func DisableInterrupts() InterruptState {
	return interrupt.Disable()
}

// RestoreInterrupts restores the interrupt state
func RestoreInterrupts(state InterruptState) {
	interrupt.Restore(state)
}
