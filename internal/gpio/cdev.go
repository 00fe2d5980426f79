//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevActuator drives an output line through the Linux GPIO character device.
type CdevActuator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
	on   bool
}

// NewCdevActuator requests pin on the named chip as an output driven low.
func NewCdevActuator(chipName string, pin int) (*CdevActuator, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}

	return &CdevActuator{
		chip: chip,
		line: line,
		pin:  pin,
	}, nil
}

// On drives the line high.
func (a *CdevActuator) On() error {
	return a.set(true)
}

// Off drives the line low.
func (a *CdevActuator) Off() error {
	return a.set(false)
}

// Toggle flips the line.
func (a *CdevActuator) Toggle() error {
	return a.set(!a.on)
}

// State reports the last value written to the line.
func (a *CdevActuator) State() bool {
	return a.on
}

func (a *CdevActuator) set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := a.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", a.pin, err)
	}
	a.on = on
	return nil
}

// Close drives the line low, then releases the line and chip.
// The cooling element must not be left running after the daemon exits.
func (a *CdevActuator) Close() error {
	var errs []error

	if a.line != nil {
		if err := a.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pin %d low: %w", a.pin, err))
		} else {
			a.on = false
		}
		if err := a.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", a.pin, err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
