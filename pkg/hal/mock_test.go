package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotherm/pkg/config"
)

func newTestMock() *Mock {
	cfg := config.Default()
	cfg.Mock.TimeConstant = 0.05 // fast plant so tests settle quickly
	cfg.Mock.NoiseLevel = 0
	return NewMock(&cfg.Mock, &cfg.Sensor)
}

func TestMock_StartsAtAmbient(t *testing.T) {
	m := newTestMock()
	assert.InDelta(t, 21.0, m.Temperature(), 0.5)
}

func TestMock_HeatsUnderDuty(t *testing.T) {
	m := newTestMock()

	require.NoError(t, m.SetDuty(100))
	time.Sleep(300 * time.Millisecond) // several plant time constants

	assert.Greater(t, m.Temperature(), 200.0)
}

func TestMock_CoolsWhenOff(t *testing.T) {
	m := newTestMock()

	require.NoError(t, m.SetDuty(100))
	time.Sleep(300 * time.Millisecond)
	require.Greater(t, m.Temperature(), 100.0)

	require.NoError(t, m.SetDuty(0))
	time.Sleep(300 * time.Millisecond)
	assert.InDelta(t, 21.0, m.Temperature(), 5.0)
}

func TestMock_DutyOutOfRangeTurnsOff(t *testing.T) {
	m := newTestMock()

	require.NoError(t, m.SetDuty(150))
	time.Sleep(200 * time.Millisecond)
	assert.InDelta(t, 21.0, m.Temperature(), 1.0, "duty above 100 is fully off")
}

func TestMock_ReadRawTracksPlant(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.NoiseLevel = 0
	m := NewMock(&cfg.Mock, &cfg.Sensor)

	raw := m.ReadRaw(0)
	temp := float64(raw)*cfg.Sensor.Slope + cfg.Sensor.Offset
	assert.InDelta(t, m.Temperature(), temp, cfg.Sensor.Slope, "one count of quantization allowed")
}

func TestMock_FaultModes(t *testing.T) {
	m := newTestMock()

	m.SetDisconnected(true)
	assert.Equal(t, uint16(adcFullScale), m.ReadRaw(0))

	m.SetDisconnected(false)
	m.SetNoPower(true)
	assert.Equal(t, uint16(0), m.ReadRaw(0))

	m.SetNoPower(false)
	raw := m.ReadRaw(0)
	assert.Greater(t, raw, uint16(0))
	assert.Less(t, raw, uint16(adcFullScale))
}

func TestMock_LED(t *testing.T) {
	m := newTestMock()

	m.On()
	on, _ := m.LEDState()
	assert.True(t, on)

	m.Toggle()
	on, toggles := m.LEDState()
	assert.False(t, on)
	assert.Equal(t, 1, toggles)

	m.Off()
	on, _ = m.LEDState()
	assert.False(t, on)
}
