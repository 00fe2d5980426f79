//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio"
)

// RPIOActuator drives an output pin through memory-mapped /dev/gpiomem.
// Only one RPIOActuator may be open at a time: go-rpio maps the GPIO
// registers process-wide.
type RPIOActuator struct {
	pin rpio.Pin
}

// NewRPIOActuator maps the GPIO registers and configures pin as an output
// driven low.
func NewRPIOActuator(pin int) (*RPIOActuator, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w", err)
	}

	p := rpio.Pin(pin)
	p.Output()
	p.Low()

	return &RPIOActuator{pin: p}, nil
}

// On drives the pin high.
func (a *RPIOActuator) On() error {
	a.pin.High()
	return nil
}

// Off drives the pin low.
func (a *RPIOActuator) Off() error {
	a.pin.Low()
	return nil
}

// Toggle flips the pin.
func (a *RPIOActuator) Toggle() error {
	if a.State() {
		return a.Off()
	}
	return a.On()
}

// State reports whether the pin reads high.
func (a *RPIOActuator) State() bool {
	return a.pin.Read() == rpio.High
}

// Close drives the pin low and unmaps the registers.
func (a *RPIOActuator) Close() error {
	a.pin.Low()
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpiomem: %w", err)
	}
	return nil
}
