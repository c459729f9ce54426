package recorder

import (
	"time"

	"magpie/core"
)

// TimeSource supplies wall-clock time for file names. The DS3231 driver
// satisfies it.
type TimeSource interface {
	ReadTime() (time.Time, error)
}

// SystemTime reads the host clock.
type SystemTime struct{}

func (SystemTime) ReadTime() (time.Time, error) {
	return time.Now(), nil
}

// TimestampPrefix appends the date and time to base:
// base_YYYYMMDD_HHMMSS.
func TimestampPrefix(base string, t time.Time) string {
	return base + "_" +
		core.PadInt(t.Year(), 4) + core.PadInt(int(t.Month()), 2) + core.PadInt(t.Day(), 2) + "_" +
		core.PadInt(t.Hour(), 2) + core.PadInt(t.Minute(), 2) + core.PadInt(t.Second(), 2)
}

// FileName describes the session in the name:
// prefix_48kHz_16_bit_1_channel.wav.
func FileName(prefix string, s Session) string {
	return prefix + "_" + core.Itoa(s.Rate.KHz()) + "kHz_" +
		core.Itoa(int(s.Depth)) + "_bit_" +
		core.Itoa(s.Mode.Count()) + "_channel.wav"
}

// NextFileName stamps base with the current time from ts and describes s.
// A failing clock falls back to the bare base.
func NextFileName(ts TimeSource, base string, s Session) string {
	prefix := base
	if ts != nil {
		if now, err := ts.ReadTime(); err == nil {
			prefix = TimestampPrefix(base, now)
		}
	}
	return FileName(prefix, s)
}
