package sensor

import "errors"

// FakeSensor is a test double that returns scripted readings.
type FakeSensor struct {
	// Readings contains scripted temperatures to return.
	// Each call to Read() consumes the next reading.
	Readings []float64

	// index tracks current position in Readings
	index int

	// Calls counts Read() invocations.
	Calls int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given readings.
func NewFakeSensor(readings ...float64) *FakeSensor {
	return &FakeSensor{Readings: readings}
}

// Read returns the next scripted reading.
// If readings are exhausted, returns the last reading repeatedly.
func (f *FakeSensor) Read() (float64, error) {
	f.Calls++
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Readings) == 0 {
		return 0, errors.New("no readings configured")
	}

	v := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return v, nil
}
