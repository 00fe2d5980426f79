// Package sensor reads the CPU temperature.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Sensor returns the current temperature in °C.
type Sensor interface {
	Read() (float64, error)
}

// DefaultThermalRoot is where the kernel exposes thermal zones.
const DefaultThermalRoot = "/sys/class/thermal"

// CPUZoneType is the thermal zone type of the SoC sensor on Raspberry Pi.
const CPUZoneType = "cpu_thermal"

// ErrNoThermalZone is returned when no thermal zone can be found.
var ErrNoThermalZone = errors.New("sensor: no thermal zone found")

// ErrBadReading is returned when a temp file holds a non-finite value.
var ErrBadReading = errors.New("sensor: non-finite reading")

// Thermal reads a sysfs thermal zone temp file (millidegrees Celsius).
type Thermal struct {
	path string
}

// NewThermal reads from the given temp file.
func NewThermal(path string) *Thermal {
	return &Thermal{path: path}
}

// Path returns the temp file being read.
func (t *Thermal) Path() string {
	return t.path
}

// Read returns the zone temperature in °C.
func (t *Thermal) Read() (float64, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", t.path, err)
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", t.path, err)
	}
	if math.IsNaN(milli) || math.IsInf(milli, 0) {
		return 0, fmt.Errorf("parse %s: %w: %q", t.path, ErrBadReading, strings.TrimSpace(string(data)))
	}
	return milli / 1000, nil
}

// FindCPUZone returns the temp file of the zone whose type is cpu_thermal
// under root. If none matches, the lowest-numbered zone is used.
func FindCPUZone(root string) (string, error) {
	zones, err := filepath.Glob(filepath.Join(root, "thermal_zone*"))
	if err != nil {
		return "", fmt.Errorf("list thermal zones: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoThermalZone, root)
	}
	sort.Slice(zones, func(i, j int) bool { return zoneIndex(zones[i]) < zoneIndex(zones[j]) })

	for _, z := range zones {
		typ, err := os.ReadFile(filepath.Join(z, "type"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(typ)) == CPUZoneType {
			return filepath.Join(z, "temp"), nil
		}
	}
	return filepath.Join(zones[0], "temp"), nil
}

func zoneIndex(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "thermal_zone"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// Open returns a Thermal sensor for path, or for the auto-detected CPU zone
// under DefaultThermalRoot when path is empty.
func Open(path string) (*Thermal, error) {
	if path == "" {
		p, err := FindCPUZone(DefaultThermalRoot)
		if err != nil {
			return nil, err
		}
		path = p
	}
	return NewThermal(path), nil
}
