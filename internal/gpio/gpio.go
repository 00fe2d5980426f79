// Package gpio provides the cooling actuator with hardware abstraction.
// The real implementations drive a Linux GPIO output line, either through
// the GPIO character device or through /dev/gpiomem.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
)

// Actuator switches the cooling element on and off.
type Actuator interface {
	// On drives the output active.
	On() error

	// Off drives the output inactive.
	Off() error

	// Toggle flips the output.
	Toggle() error

	// State reports whether the output is currently active.
	State() bool

	// Close drives the output inactive and releases GPIO resources.
	Close() error
}

// Valid BCM pin range on the 40-pin header. 0 and 1 are reserved for the
// HAT ID EEPROM.
const (
	MinPin = 2
	MaxPin = 27
)

// DefaultChip is the GPIO character device on Raspberry Pi boards.
const DefaultChip = "gpiochip0"

// Consumer is the line label shown by gpioinfo.
const Consumer = "ice-tower"

// Backend names the driver used to reach the pin.
type Backend string

const (
	BackendCdev Backend = "cdev" // Linux GPIO character device
	BackendRPIO Backend = "rpio" // memory-mapped /dev/gpiomem
)

var (
	// ErrInvalidPin is returned for pins outside MinPin..MaxPin.
	ErrInvalidPin = errors.New("gpio: invalid pin")

	// ErrUnknownBackend is returned by Open for unrecognised backends.
	ErrUnknownBackend = errors.New("gpio: unknown backend")

	// ErrUnsupported is returned on platforms without GPIO access.
	ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")
)

// ValidatePin checks that pin is a usable BCM output pin.
func ValidatePin(pin int) error {
	if pin < MinPin || pin > MaxPin {
		return fmt.Errorf("%w: %d (must be %d..%d)", ErrInvalidPin, pin, MinPin, MaxPin)
	}
	return nil
}

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendCdev, BackendRPIO:
		return Backend(s), nil
	}
	return "", fmt.Errorf("%w %q (want %q or %q)", ErrUnknownBackend, s, BackendCdev, BackendRPIO)
}

// Open returns an actuator for pin using the given backend. The output
// starts inactive.
func Open(backend Backend, chip string, pin int) (Actuator, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	switch backend {
	case BackendCdev, "":
		if chip == "" {
			chip = DefaultChip
		}
		a, err := NewCdevActuator(chip, pin)
		if err != nil {
			return nil, err
		}
		return a, nil
	case BackendRPIO:
		a, err := NewRPIOActuator(pin)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBackend, backend)
}
