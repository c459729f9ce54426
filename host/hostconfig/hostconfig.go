// Package hostconfig holds the settings of the host tool: which serial
// port the recorder is on, where received files go and where completion
// events are published. Values come from a YAML file and MAGPIE_*
// environment variables.
package hostconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g.
// MAGPIE_SERIAL_PORT.
const EnvPrefix = "MAGPIE"

type SerialConfig struct {
	Port          string `mapstructure:"port" yaml:"port"`
	Baud          int    `mapstructure:"baud" yaml:"baud"`
	ReadTimeoutMs int    `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`
}

type NATSConfig struct {
	URL      string `mapstructure:"url" yaml:"url"` // empty disables publishing
	Attempts int    `mapstructure:"attempts" yaml:"attempts"`
}

type Config struct {
	Device    string       `mapstructure:"device" yaml:"device"`
	OutputDir string       `mapstructure:"output_dir" yaml:"output_dir"`
	Serial    SerialConfig `mapstructure:"serial" yaml:"serial"`
	NATS      NATSConfig   `mapstructure:"nats" yaml:"nats"`

	// Recording is a device JSON configuration used by simulate. Empty
	// means the device defaults.
	Recording string `mapstructure:"recording" yaml:"recording"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Device:    "magpie00",
		OutputDir: filepath.Join(os.Getenv("HOME"), "Audio", "Magpie"),
		Serial: SerialConfig{
			Port:          "/dev/ttyACM0",
			Baud:          115200,
			ReadTimeoutMs: 100,
		},
		NATS: NATSConfig{Attempts: 5},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("device", d.Device)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("serial.port", d.Serial.Port)
	v.SetDefault("serial.baud", d.Serial.Baud)
	v.SetDefault("serial.read_timeout_ms", d.Serial.ReadTimeoutMs)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.attempts", d.NATS.Attempts)
	v.SetDefault("recording", d.Recording)
}

// Load reads path (YAML) over the defaults and applies environment
// overrides. A missing file is not an error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !(optional && errors.Is(err, os.ErrNotExist)) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device name must not be empty")
	}
	if strings.ContainsAny(c.Device, ".*> ") {
		return fmt.Errorf("device name %q is not a valid subject token", c.Device)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud %d must be positive", c.Serial.Baud)
	}
	return nil
}

// Marshal renders the settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes c to path as YAML, creating the directory.
func Save(path string, c *Config) error {
	out, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
