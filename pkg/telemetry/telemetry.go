// Package telemetry publishes controller status snapshots over MQTT.
// Publishing is best effort: a broker outage must never stall the
// control loop.
package telemetry

import (
	"encoding/json"
	"time"
)

// Snapshot is a point-in-time view of the controller published at the
// 1s housekeeping cadence.
type Snapshot struct {
	Time        time.Time
	HeaterState string
	HeaterCode  string
	SensorState string
	SensorCode  string
	Temperature float64
	Setpoint    float64
	Duty        float64
}

// Publisher publishes status snapshots.
type Publisher interface {
	// Publish sends a status snapshot to the broker. Failures are
	// reported, not fatal.
	Publish(snap Snapshot) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON wire format of a status snapshot.
type Payload struct {
	Heater PayloadHeater `json:"heater"`
	Sensor PayloadSensor `json:"sensor"`
}

// PayloadHeater contains the heater status fields.
type PayloadHeater struct {
	Timestamp   string  `json:"timestamp"`
	State       string  `json:"state"`
	Code        string  `json:"code"`
	Temperature float64 `json:"temperature"`
	Setpoint    float64 `json:"setpoint"`
	Duty        float64 `json:"duty"`
}

// PayloadSensor contains the sensor status fields.
type PayloadSensor struct {
	State string `json:"state"`
	Code  string `json:"code"`
}

// FormatPayload creates the JSON payload for a status snapshot.
func FormatPayload(snap Snapshot) ([]byte, error) {
	payload := Payload{
		Heater: PayloadHeater{
			Timestamp:   snap.Time.UTC().Format(time.RFC3339),
			State:       snap.HeaterState,
			Code:        snap.HeaterCode,
			Temperature: snap.Temperature,
			Setpoint:    snap.Setpoint,
			Duty:        snap.Duty,
		},
		Sensor: PayloadSensor{
			State: snap.SensorState,
			Code:  snap.SensorCode,
		},
	}
	return json.Marshal(payload)
}
