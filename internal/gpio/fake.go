package gpio

// FakeActuator is a test double that records every call.
type FakeActuator struct {
	// IsOn is the current output state.
	IsOn bool

	// Calls records "ON", "OFF", "TOGGLE" and "CLOSE" in call order.
	Calls []string

	// OnCalls, OffCalls and ToggleCalls count calls per operation.
	OnCalls     int
	OffCalls    int
	ToggleCalls int

	// Closed tracks if Close was called
	Closed bool

	// Err, if set, will be returned by On, Off and Toggle.
	Err error
}

// NewFakeActuator creates a FakeActuator in the given initial state.
func NewFakeActuator(on bool) *FakeActuator {
	return &FakeActuator{IsOn: on}
}

// On records the call and sets the state.
func (f *FakeActuator) On() error {
	f.Calls = append(f.Calls, "ON")
	f.OnCalls++
	if f.Err != nil {
		return f.Err
	}
	f.IsOn = true
	return nil
}

// Off records the call and clears the state.
func (f *FakeActuator) Off() error {
	f.Calls = append(f.Calls, "OFF")
	f.OffCalls++
	if f.Err != nil {
		return f.Err
	}
	f.IsOn = false
	return nil
}

// Toggle records the call and flips the state.
func (f *FakeActuator) Toggle() error {
	f.Calls = append(f.Calls, "TOGGLE")
	f.ToggleCalls++
	if f.Err != nil {
		return f.Err
	}
	f.IsOn = !f.IsOn
	return nil
}

// State returns the current state.
func (f *FakeActuator) State() bool {
	return f.IsOn
}

// Close marks the actuator as closed and its output inactive.
func (f *FakeActuator) Close() error {
	f.Calls = append(f.Calls, "CLOSE")
	f.Closed = true
	f.IsOn = false
	return nil
}

// Reset clears recorded calls.
func (f *FakeActuator) Reset() {
	f.Calls = nil
	f.OnCalls = 0
	f.OffCalls = 0
	f.ToggleCalls = 0
	f.Closed = false
	f.Err = nil
}
