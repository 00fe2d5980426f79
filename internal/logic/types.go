// Package logic contains the pure decision logic for the ice tower.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical state of the cooling actuator.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf converts an actuator boolean into a State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// EventType represents an actuator transition.
type EventType string

const (
	EventTowerOn  EventType = "TOWER_ON"
	EventTowerOff EventType = "TOWER_OFF"
)

// Target returns the actuator state the event switches to.
func (e EventType) Target() State {
	if e == EventTowerOn {
		return StateOn
	}
	return StateOff
}

// Event represents a transition decided by the controller.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Temperature float64 // reading that completed the qualifying window
	Percentage  float64 // share of the window past the threshold
}

// Input represents a single tick: the new reading and the actuator state
// observed before the decision.
type Input struct {
	Temperature float64
	State       State
	Time        time.Time
}

// Params are the hysteresis parameters.
type Params struct {
	Threshold  float64 // °C
	Percentage float64 // 0..100, strict >
	WindowSize int
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	On  int
	Off int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
