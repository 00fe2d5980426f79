// Package config loads daemon configuration from defaults, an optional YAML
// file, ICETOWER_* environment variables, and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sweeney/ice-tower/internal/gpio"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "ICETOWER_"

// DefaultEnvFile is where pi-helper writes network state.
const DefaultEnvFile = "/run/pi-helper.env"

// Config is the daemon configuration. It is fixed for the process lifetime.
type Config struct {
	Pin         int           `koanf:"pin"`
	Delay       time.Duration `koanf:"delay"`
	Temperature float64       `koanf:"temperature"`
	Window      int           `koanf:"window"`
	Percentage  float64       `koanf:"percentage"`

	Sensor    string        `koanf:"sensor"` // temp file; empty = auto-detect
	GPIO      GPIOConfig    `koanf:"gpio"`
	MQTT      MQTTConfig    `koanf:"mqtt"`
	HTTP      string        `koanf:"http"` // listen address; empty = disabled
	Heartbeat time.Duration `koanf:"heartbeat"`
	EnvFile   string        `koanf:"env_file"`
	LogLevel  string        `koanf:"log_level"`
}

// GPIOConfig selects how the actuator pin is driven.
type GPIOConfig struct {
	Chip    string `koanf:"chip"`
	Backend string `koanf:"backend"`
}

// MQTTConfig configures event publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker    string `koanf:"broker"`
	BaseTopic string `koanf:"base_topic"`
	ClientID  string `koanf:"client_id"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
}

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid config")
)

// Defaults returns the built-in configuration. Pin has no default.
func Defaults() Config {
	return Config{
		Delay:       time.Second,
		Temperature: 40,
		Window:      10,
		Percentage:  80,
		GPIO: GPIOConfig{
			Chip:    gpio.DefaultChip,
			Backend: string(gpio.BackendCdev),
		},
		MQTT: MQTTConfig{
			BaseTopic: "cooling/ice-tower",
			ClientID:  "ice-tower",
		},
		Heartbeat: 15 * time.Minute,
		EnvFile:   DefaultEnvFile,
		LogLevel:  "info",
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty),
// the environment, and overrides (koanf keys such as "window" or
// "mqtt.broker"), in that order. The result is validated.
func Load(path string, overrides map[string]any) (Config, error) {
	return load(path, os.Environ, overrides)
}

func load(path string, environ func() []string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("override %s: %w", key, err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.ComposeDecodeHookFunc(secondsHook, mapstructure.StringToTimeDurationHookFunc()),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps ICETOWER_MQTT_BROKER to mqtt.broker and ICETOWER_LOG_LEVEL
// to log_level. Only the gpio and mqtt sections are nested.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	for _, section := range []string{"gpio_", "mqtt_"} {
		if strings.HasPrefix(k, section) {
			k = strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(k, section)
			break
		}
	}
	return k, v
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsHook lets plain numbers stand for seconds wherever a duration is
// expected ("delay: 2", ICETOWER_DELAY=0.5). Strings with units fall through
// to the standard duration hook.
func secondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return finiteSeconds(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return finiteSeconds(f)
		}
	}
	return data, nil
}

func finiteSeconds(s float64) (time.Duration, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("%w: duration must be a finite number of seconds, got %v", ErrInvalid, s)
	}
	return Seconds(s), nil
}

// Seconds converts fractional seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate checks the configuration. Failures wrap ErrInvalid and, for the
// pin, gpio.ErrInvalidPin.
func (c Config) Validate() error {
	if err := gpio.ValidatePin(c.Pin); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Delay <= 0 {
		return fmt.Errorf("%w: delay must be positive, got %v", ErrInvalid, c.Delay)
	}
	if c.Window < 1 {
		return fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalid, c.Window)
	}
	if math.IsNaN(c.Temperature) || math.IsInf(c.Temperature, 0) {
		return fmt.Errorf("%w: temperature must be a finite number, got %v", ErrInvalid, c.Temperature)
	}
	// NaN fails every comparison, so check it before the range.
	if math.IsNaN(c.Percentage) || c.Percentage < 0 || c.Percentage >= 100 {
		return fmt.Errorf("%w: percentage must be in [0, 100), got %v", ErrInvalid, c.Percentage)
	}
	if _, err := gpio.ParseBackend(c.GPIO.Backend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalid, c.Heartbeat)
	}
	return nil
}
