package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a capture-path event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Channel   uint8  // Audio channel the event belongs to
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtChunkComplete = 1 // DMA chunk completion interrupt
	EvtChunkConsume  = 2 // Consumer claimed a chunk
	EvtOverrun       = 3 // Available count exceeded ring capacity
	EvtFlush         = 4 // Packing buffer written to storage
	EvtSyncEdge      = 5 // Chip-select edge seen during start-up sync
	EvtStart         = 6 // Channel enabled
	EvtStop          = 7 // Channel disabled
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem).
	// Written from interrupt context, so the head is claimed atomically.
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead atomic.Uint32
	timingEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTimingEnabled turns timing capture on or off
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures a timing event in the ring buffer.
// Safe to call from the DMA completion interrupt.
func RecordTiming(eventType, channel uint8, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := (timingRingHead.Add(1) - 1) % TimingRingSize
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Channel:   channel,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
}

// TimingEvents returns the recorded events from oldest to newest.
func TimingEvents() []TimingEvent {
	head := timingRingHead.Load()
	events := make([]TimingEvent, 0, TimingRingSize)
	for i := uint32(0); i < TimingRingSize; i++ {
		evt := timingRing[(head+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

func eventName(t uint8) string {
	switch t {
	case EvtChunkComplete:
		return "CHUNK_DONE"
	case EvtChunkConsume:
		return "CHUNK_TAKE"
	case EvtOverrun:
		return "OVERRUN!"
	case EvtFlush:
		return "FLUSH"
	case EvtSyncEdge:
		return "SYNC_EDGE"
	case EvtStart:
		return "START"
	case EvtStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" ch=" + Itoa(int(evt.Channel)) +
			" clock=" + Utoa(evt.Clock) +
			" v1=" + Utoa(evt.Value1) +
			" v2=" + Utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead.Store(0)
}
