package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/ice-tower/internal/gpio"
)

func noEnv() []string { return nil }

func TestDefaults(t *testing.T) {
	cfg, err := load("", noEnv, map[string]any{"pin": 17})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pin != 17 {
		t.Errorf("Pin: got %d, want 17", cfg.Pin)
	}
	if cfg.Delay != time.Second {
		t.Errorf("Delay: got %v, want 1s", cfg.Delay)
	}
	if cfg.Temperature != 40 {
		t.Errorf("Temperature: got %v, want 40", cfg.Temperature)
	}
	if cfg.Window != 10 {
		t.Errorf("Window: got %d, want 10", cfg.Window)
	}
	if cfg.Percentage != 80 {
		t.Errorf("Percentage: got %v, want 80", cfg.Percentage)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip: got %q, want gpiochip0", cfg.GPIO.Chip)
	}
	if cfg.GPIO.Backend != "cdev" {
		t.Errorf("GPIO.Backend: got %q, want cdev", cfg.GPIO.Backend)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("MQTT.Broker: got %q, want empty", cfg.MQTT.Broker)
	}
	if cfg.Heartbeat != 15*time.Minute {
		t.Errorf("Heartbeat: got %v, want 15m", cfg.Heartbeat)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want info", cfg.LogLevel)
	}
}

func TestMissingPin(t *testing.T) {
	_, err := load("", noEnv, nil)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if !errors.Is(err, gpio.ErrInvalidPin) {
		t.Errorf("expected gpio.ErrInvalidPin, got %v", err)
	}
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ice-tower.yaml")
	yaml := `pin: 18
delay: 2.5
temperature: 55
window: 20
percentage: 90
sensor: /tmp/temp
gpio:
  backend: rpio
mqtt:
  broker: tcp://192.168.1.200:1883
  base_topic: lab/tower
heartbeat: 5m
http: ":8080"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path, noEnv, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pin != 18 {
		t.Errorf("Pin: got %d, want 18", cfg.Pin)
	}
	if cfg.Delay != 2500*time.Millisecond {
		t.Errorf("Delay: got %v, want 2.5s", cfg.Delay)
	}
	if cfg.Temperature != 55 {
		t.Errorf("Temperature: got %v, want 55", cfg.Temperature)
	}
	if cfg.Window != 20 {
		t.Errorf("Window: got %d, want 20", cfg.Window)
	}
	if cfg.Percentage != 90 {
		t.Errorf("Percentage: got %v, want 90", cfg.Percentage)
	}
	if cfg.Sensor != "/tmp/temp" {
		t.Errorf("Sensor: got %q", cfg.Sensor)
	}
	if cfg.GPIO.Backend != "rpio" {
		t.Errorf("GPIO.Backend: got %q, want rpio", cfg.GPIO.Backend)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip should keep its default, got %q", cfg.GPIO.Chip)
	}
	if cfg.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.BaseTopic != "lab/tower" {
		t.Errorf("MQTT.BaseTopic: got %q", cfg.MQTT.BaseTopic)
	}
	if cfg.MQTT.ClientID != "ice-tower" {
		t.Errorf("MQTT.ClientID should keep its default, got %q", cfg.MQTT.ClientID)
	}
	if cfg.Heartbeat != 5*time.Minute {
		t.Errorf("Heartbeat: got %v, want 5m", cfg.Heartbeat)
	}
	if cfg.HTTP != ":8080" {
		t.Errorf("HTTP: got %q", cfg.HTTP)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), noEnv, map[string]any{"pin": 17})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	environ := func() []string {
		return []string{
			"ICETOWER_WINDOW=30",
			"ICETOWER_DELAY=0.5",
			"ICETOWER_PERCENTAGE=75.5",
			"ICETOWER_MQTT_BROKER=tcp://broker:1883",
			"ICETOWER_GPIO_CHIP=gpiochip4",
			"ICETOWER_LOG_LEVEL=debug",
			"ICETOWER_HEARTBEAT=1m",
			"HOME=/root",
		}
	}

	cfg, err := load("", environ, map[string]any{"pin": 17})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Window != 30 {
		t.Errorf("Window: got %d, want 30", cfg.Window)
	}
	if cfg.Delay != 500*time.Millisecond {
		t.Errorf("Delay: got %v, want 500ms", cfg.Delay)
	}
	if cfg.Percentage != 75.5 {
		t.Errorf("Percentage: got %v, want 75.5", cfg.Percentage)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.GPIO.Chip != "gpiochip4" {
		t.Errorf("GPIO.Chip: got %q", cfg.GPIO.Chip)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
	if cfg.Heartbeat != time.Minute {
		t.Errorf("Heartbeat: got %v, want 1m", cfg.Heartbeat)
	}
}

func TestOverridesBeatEnvAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ice-tower.yaml")
	if err := os.WriteFile(path, []byte("pin: 18\nwindow: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	environ := func() []string { return []string{"ICETOWER_WINDOW=30"} }

	cfg, err := load(path, environ, map[string]any{"window": 5, "delay": 3 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pin != 18 {
		t.Errorf("Pin: got %d, want 18 from file", cfg.Pin)
	}
	if cfg.Window != 5 {
		t.Errorf("Window: got %d, want 5 from override", cfg.Window)
	}
	if cfg.Delay != 3*time.Second {
		t.Errorf("Delay: got %v, want 3s from override", cfg.Delay)
	}
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.Pin = 17
	if err := base.Validate(); err != nil {
		t.Fatalf("defaults with pin should be valid: %v", err)
	}

	cases := map[string]func(c *Config){
		"pin too low":        func(c *Config) { c.Pin = 1 },
		"pin too high":       func(c *Config) { c.Pin = 28 },
		"zero delay":         func(c *Config) { c.Delay = 0 },
		"zero window":        func(c *Config) { c.Window = 0 },
		"negative pct":       func(c *Config) { c.Percentage = -1 },
		"pct 100":            func(c *Config) { c.Percentage = 100 },
		"unknown backend":    func(c *Config) { c.GPIO.Backend = "sysfs" },
		"negative heartbeat": func(c *Config) { c.Heartbeat = -time.Second },
		"NaN temperature":    func(c *Config) { c.Temperature = math.NaN() },
		"+Inf temperature":   func(c *Config) { c.Temperature = math.Inf(1) },
		"-Inf temperature":   func(c *Config) { c.Temperature = math.Inf(-1) },
		"NaN pct":            func(c *Config) { c.Percentage = math.NaN() },
		"+Inf pct":           func(c *Config) { c.Percentage = math.Inf(1) },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestLoadRejectsNonFiniteNumbers(t *testing.T) {
	for key, v := range map[string]string{"temperature": "NaN", "percentage": "NaN"} {
		_, err := load("", noEnv, map[string]any{"pin": 17, key: v})
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%s=%s: expected ErrInvalid, got %v", key, v, err)
		}
	}

	_, err := load("", noEnv, map[string]any{"pin": 17, "temperature": "+Inf"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("temperature=+Inf: expected ErrInvalid, got %v", err)
	}

	// Rejected by the decode hook before validation.
	if _, err := load("", noEnv, map[string]any{"pin": 17, "delay": "+Inf"}); err == nil {
		t.Error("delay=+Inf: expected error")
	}
}

func TestEnvKey(t *testing.T) {
	want := map[string]string{
		"ICETOWER_PIN":             "pin",
		"ICETOWER_LOG_LEVEL":       "log_level",
		"ICETOWER_ENV_FILE":        "env_file",
		"ICETOWER_MQTT_BASE_TOPIC": "mqtt.base_topic",
		"ICETOWER_GPIO_BACKEND":    "gpio.backend",
	}
	for in, out := range want {
		got, _ := envKey(in, "")
		if got != out {
			t.Errorf("envKey(%q): got %q, want %q", in, got, out)
		}
	}
}

func TestSeconds(t *testing.T) {
	if Seconds(1.5) != 1500*time.Millisecond {
		t.Errorf("Seconds(1.5): got %v", Seconds(1.5))
	}
}
