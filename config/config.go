// Package config loads the recorder's JSON session configuration. It is
// plain encoding/json so the same code runs on the device and the host.
package config

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"magpie/audio"
	"magpie/core"
)

var (
	ErrSampleRate   = errors.New("unsupported sample rate")
	ErrBitDepth     = errors.New("unsupported bit depth")
	ErrChannels     = errors.New("channels must be mono or stereo")
	ErrMonoChannel  = errors.New("mono channel must be 0 or 1")
	ErrGain         = errors.New("gain must be 5..40 dB in 5 dB steps")
	ErrDuration     = errors.New("duration must be positive")
	ErrFileTooLarge = errors.New("recording would exceed 4 GiB")
	ErrChunkSamples = errors.New("chunk samples must be a multiple of 64 up to 2048")
	ErrFilePrefix   = errors.New("file prefix too long")
)

// Limits. The capture path holds about 66 bytes per chunk sample between
// the DMA rings, the shared pool and the filter history, so chunks past
// MaxChunkSamples leave no room for the rest of the firmware in 264 KB.
const (
	DefaultChunkSamples = 1536 // 4 ms at 384 kHz
	MaxChunkSamples     = 2048
	MaxPrefixLength     = 32
)

// RecorderConfig is one recording session's parameters.
type RecorderConfig struct {
	SampleRate      uint32 `json:"sample_rate"`
	BitDepth        uint8  `json:"bit_depth"`
	Channels        string `json:"channels"`     // "mono" or "stereo"
	MonoChannel     uint8  `json:"mono_channel"` // which input a mono file records
	GainDB          uint8  `json:"gain_db"`
	DurationSeconds uint32 `json:"duration_seconds"` // length of each file
	FileCount       uint32 `json:"file_count"`       // 0 records until stopped
	FilePrefix      string `json:"file_prefix"`
	DeviceName      string `json:"device_name"`
	ChunkSamples    uint32 `json:"chunk_samples"`
	SyncTimeoutMs   uint32 `json:"sync_timeout_ms"`
	Debug           bool   `json:"debug"`
}

// LoadConfig parses a JSON configuration, applies defaults and validates.
func LoadConfig(jsonData []byte) (*RecorderConfig, error) {
	var config RecorderConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, core.NewOpError("config parse", core.ErrConfig, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing values
func applyDefaults(config *RecorderConfig) {
	if config.SampleRate == 0 {
		config.SampleRate = uint32(audio.Rate48k)
	}
	if config.BitDepth == 0 {
		config.BitDepth = uint8(audio.Depth16)
	}
	if config.Channels == "" {
		config.Channels = audio.Mono.String()
	}
	if config.GainDB == 0 {
		config.GainDB = uint8(audio.Gain40dB)
	}
	if config.DurationSeconds == 0 {
		config.DurationSeconds = 60
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "Magpie00"
	}
	if config.DeviceName == "" {
		config.DeviceName = "magpie00"
	}
	if config.ChunkSamples == 0 {
		config.ChunkSamples = DefaultChunkSamples
	}
	if config.SyncTimeoutMs == 0 {
		config.SyncTimeoutMs = 50
	}
}

// Validate checks every field against what the hardware supports.
func (c *RecorderConfig) Validate() error {
	check := func(ok bool, field string, err error) error {
		if ok {
			return nil
		}
		return core.NewOpError("config "+field, core.ErrConfig, err)
	}
	mode, modeOK := parseMode(c.Channels)
	checks := []error{
		check(c.Rate().Valid(), "sample_rate", ErrSampleRate),
		check(c.Depth().Valid(), "bit_depth", ErrBitDepth),
		check(modeOK, "channels", ErrChannels),
		check(audio.Channel(c.MonoChannel).Valid(), "mono_channel", ErrMonoChannel),
		check(c.Gain().Valid(), "gain_db", ErrGain),
		check(c.DurationSeconds > 0, "duration_seconds", ErrDuration),
		check(c.ChunkSamples > 0 && c.ChunkSamples%64 == 0 && c.ChunkSamples <= MaxChunkSamples,
			"chunk_samples", ErrChunkSamples),
		check(len(c.FilePrefix) <= MaxPrefixLength, "file_prefix", ErrFilePrefix),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	payload := uint64(c.DurationSeconds) * uint64(c.SampleRate) *
		uint64(mode.Count()) * uint64(c.Depth().BytesPerSample())
	return check(payload+44 <= math.MaxUint32, "duration_seconds", ErrFileTooLarge)
}

func parseMode(s string) (audio.ChannelMode, bool) {
	switch s {
	case audio.Mono.String():
		return audio.Mono, true
	case audio.Stereo.String():
		return audio.Stereo, true
	}
	return audio.Mono, false
}

func (c *RecorderConfig) Rate() audio.SampleRate {
	return audio.SampleRate(c.SampleRate)
}

func (c *RecorderConfig) Depth() audio.BitDepth {
	return audio.BitDepth(c.BitDepth)
}

// Mode returns the channel mode. Call Validate first; an unknown string
// reads as mono.
func (c *RecorderConfig) Mode() audio.ChannelMode {
	m, _ := parseMode(c.Channels)
	return m
}

func (c *RecorderConfig) Gain() audio.Gain {
	return audio.Gain(c.GainDB)
}

func (c *RecorderConfig) Channel() audio.Channel {
	return audio.Channel(c.MonoChannel)
}

// Duration is the length of one file.
func (c *RecorderConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

func (c *RecorderConfig) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutMs) * time.Millisecond
}

// Marshal encodes the configuration as indented JSON.
func (c *RecorderConfig) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// DefaultConfig returns the configuration used when none is supplied:
// one minute mono files at 48 kHz, 16 bit, 40 dB gain.
func DefaultConfig() *RecorderConfig {
	var config RecorderConfig
	applyDefaults(&config)
	return &config
}
