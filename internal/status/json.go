package status

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Tower         string       `json:"tower"`
	Temperature   *float64     `json:"temperature,omitempty"`
	Window        []float64    `json:"window"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin         int     `json:"pin"`
	DelayMs     int64   `json:"delay_ms"`
	Temperature float64 `json:"temperature"`
	Window      int     `json:"window"`
	Percentage  float64 `json:"percentage"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Sensor      string  `json:"sensor"`
	Backend     string  `json:"backend"`
	HTTPAddr    string  `json:"http_addr,omitempty"`
}

// TowerString renders the actuator state, UNKNOWN before the first tick.
func TowerString(s Snapshot) string {
	if s.Tower == "" {
		return "UNKNOWN"
	}
	return string(s.Tower)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Tower:         TowerString(snap),
		Window:        snap.Window,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON{On: snap.Counts.On, Off: snap.Counts.Off},
		Config: ConfigJSON{
			Pin:         snap.Config.Pin,
			DelayMs:     snap.Config.DelayMs,
			Temperature: snap.Config.Threshold,
			Window:      snap.Config.WindowSize,
			Percentage:  snap.Config.Percentage,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Sensor:      snap.Config.Sensor,
			Backend:     snap.Config.Backend,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if inner.Window == nil {
		inner.Window = []float64{}
	}
	if snap.HasReading {
		temp := snap.Temperature
		inner.Temperature = &temp
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, err := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("marshal status")
	}
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, err := json.Marshal(StatusJSON{Status: inner})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal status event")
	}
	return data
}
