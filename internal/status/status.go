// Package status provides a thread-safe status tracker for the ice-tower daemon.
// The control loop writes it; HTTP handlers and MQTT heartbeats read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ice-tower/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Pin         int
	DelayMs     int64
	Threshold   float64
	WindowSize  int
	Percentage  float64
	HeartbeatMs int64
	Sensor      string
	Backend     string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value copy and may be used after the lock is released.
type Snapshot struct {
	Tower         logic.State // empty until the first tick
	Temperature   float64
	HasReading    bool
	Window        []float64
	Ready         bool // window full, decisions active
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Reading bundles the per-tick values written by the control loop.
type Reading struct {
	Tower       logic.State
	Temperature float64
	Window      []float64
	Ready       bool
	Counts      logic.EventCounts
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest tick.
func (t *Tracker) Update(r Reading) {
	window := append([]float64(nil), r.Window...)
	t.mu.Lock()
	t.snap.Tower = r.Tower
	t.snap.Temperature = r.Temperature
	t.snap.HasReading = true
	t.snap.Window = window
	t.snap.Ready = r.Ready
	t.snap.Counts = r.Counts
	t.mu.Unlock()
}

// SetTower records an actuator state change outside a tick (shutdown).
func (t *Tracker) SetTower(s logic.State) {
	t.mu.Lock()
	t.snap.Tower = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Window = append([]float64(nil), t.snap.Window...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
