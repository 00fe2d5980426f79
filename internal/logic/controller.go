package logic

import "time"

// PercentMatching returns the share of values satisfying pred, in percent.
// An empty slice yields 0.
func PercentMatching(values []float64, pred func(float64) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	// count*100/len keeps 8 of 10 at exactly 80.
	return float64(n) * 100 / float64(len(values))
}

// Decide applies the hysteresis policy to a window of readings.
// It returns the transition to perform and the percentage that was compared,
// or nil when the actuator should stay as it is. Partial windows never act.
func Decide(p Params, state State, w *Window) (*EventType, float64) {
	if !w.IsFull() {
		return nil, 0
	}
	values := w.Values()

	if state == StateOn {
		below := PercentMatching(values, func(v float64) bool { return v < p.Threshold })
		if below > p.Percentage {
			e := EventTowerOff
			return &e, below
		}
		return nil, below
	}

	above := PercentMatching(values, func(v float64) bool { return v > p.Threshold })
	if above > p.Percentage {
		e := EventTowerOn
		return &e, above
	}
	return nil, above
}

// Controller owns the measurement window and turns readings into
// actuator transitions.
type Controller struct {
	params        Params
	window        *Window
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
	last          float64
	samples       int
}

// NewController creates a controller with an empty window of p.WindowSize.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(p Params, startTime time.Time) *Controller {
	return &Controller{
		params:        p,
		window:        NewWindow(p.WindowSize),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process records a reading and returns the transition to apply, if any.
// The caller is expected to apply the event before the next call; feeding
// the same state again after an event repeats the decision.
func (c *Controller) Process(in Input) *Event {
	c.window.Push(in.Temperature)
	c.last = in.Temperature
	c.samples++

	et, pct := Decide(c.params, in.State, c.window)
	if et == nil {
		return nil
	}

	switch *et {
	case EventTowerOn:
		c.eventCounts.On++
	case EventTowerOff:
		c.eventCounts.Off++
	}

	return &Event{
		Timestamp:   in.Time,
		Type:        *et,
		Temperature: in.Temperature,
		Percentage:  pct,
	}
}

// IsReady reports whether the window is full and decisions are being made.
func (c *Controller) IsReady() bool {
	return c.window.IsFull()
}

// Window returns a copy of the readings, oldest first.
func (c *Controller) Window() []float64 {
	return c.window.Values()
}

// LastReading returns the most recent reading and whether one exists.
func (c *Controller) LastReading() (float64, bool) {
	return c.last, c.samples > 0
}

// EventCountsSnapshot returns a copy of the transition counts.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
