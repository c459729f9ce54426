package core

// TimerFreq is the tick rate of the system timer (the RP2040 microsecond timer)
const TimerFreq = 1000000

var (
	systemTicks uint32
	bootTime    uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerInit latches the boot time
func TimerInit() {
	bootTime = GetTime()
}

// Uptime returns ticks elapsed since TimerInit, modulo 2^32
func Uptime() uint32 {
	return GetTime() - bootTime
}
