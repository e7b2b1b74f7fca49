package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Time:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		HeaterState: "HEATING",
		HeaterCode:  "OK",
		SensorState: "HAS_DATA",
		SensorCode:  "OK",
		Temperature: 182.4,
		Setpoint:    200.0,
		Duty:        74.5,
	}
}

func TestFormatPayload(t *testing.T) {
	data, err := FormatPayload(testSnapshot())
	require.NoError(t, err)

	var payload Payload
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, "2025-06-01T12:00:00Z", payload.Heater.Timestamp)
	assert.Equal(t, "HEATING", payload.Heater.State)
	assert.Equal(t, "OK", payload.Heater.Code)
	assert.InDelta(t, 182.4, payload.Heater.Temperature, 1e-9)
	assert.InDelta(t, 200.0, payload.Heater.Setpoint, 1e-9)
	assert.InDelta(t, 74.5, payload.Heater.Duty, 1e-9)
	assert.Equal(t, "HAS_DATA", payload.Sensor.State)
	assert.Equal(t, "OK", payload.Sensor.Code)
}

func TestFakePublisher_Records(t *testing.T) {
	fake := NewFakePublisher()

	require.NoError(t, fake.Publish(testSnapshot()))
	require.NoError(t, fake.Publish(testSnapshot()))

	assert.Len(t, fake.Snapshots, 2)
	assert.Len(t, fake.Payloads, 2)
	assert.Equal(t, "HEATING", fake.Snapshots[0].HeaterState)
}

func TestFakePublisher_Error(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker down")

	assert.Error(t, fake.Publish(testSnapshot()))
	assert.Empty(t, fake.Snapshots)
}

func TestFakePublisher_Close(t *testing.T) {
	fake := NewFakePublisher()
	require.NoError(t, fake.Close())
	assert.True(t, fake.Closed)
}
