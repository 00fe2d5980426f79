//go:build !linux

package gpio

// CdevActuator is not available on non-Linux platforms.
type CdevActuator struct{}

// NewCdevActuator returns ErrUnsupported on non-Linux platforms.
func NewCdevActuator(chipName string, pin int) (*CdevActuator, error) {
	return nil, ErrUnsupported
}

func (a *CdevActuator) On() error     { return ErrUnsupported }
func (a *CdevActuator) Off() error    { return ErrUnsupported }
func (a *CdevActuator) Toggle() error { return ErrUnsupported }
func (a *CdevActuator) State() bool   { return false }
func (a *CdevActuator) Close() error  { return nil }

// RPIOActuator is not available on non-Linux platforms.
type RPIOActuator struct{}

// NewRPIOActuator returns ErrUnsupported on non-Linux platforms.
func NewRPIOActuator(pin int) (*RPIOActuator, error) {
	return nil, ErrUnsupported
}

func (a *RPIOActuator) On() error     { return ErrUnsupported }
func (a *RPIOActuator) Off() error    { return ErrUnsupported }
func (a *RPIOActuator) Toggle() error { return ErrUnsupported }
func (a *RPIOActuator) State() bool   { return false }
func (a *RPIOActuator) Close() error  { return nil }
