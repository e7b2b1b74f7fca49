package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/heater"
	"github.com/itohio/gotherm/pkg/pid"
	"github.com/itohio/gotherm/pkg/sensor"
)

type adcStub struct{ value uint16 }

func (a adcStub) ReadRaw(channel int) uint16 { return a.value }

type pwmStub struct{}

func (pwmStub) SetFrequency(hz float64) error { return nil }
func (pwmStub) SetDuty(percent float64) error { return nil }

func newTestDevice(t *testing.T) (*Device, *heater.Controller, *sensor.Sensor, *config.Config) {
	t.Helper()
	cfg := config.Default()

	sens := sensor.New(&cfg.Sensor, adcStub{value: 200})
	sens.Init()

	heat := heater.New(&cfg.Heater, sens, pid.New(&cfg.PID), pwmStub{})
	heat.Init()

	return New(cfg, heat, sens), heat, sens, cfg
}

func TestIdentificationRegisters(t *testing.T) {
	dev, _, _, _ := newTestDevice(t)

	id, err := dev.ReadByte(AddressOffset + RegDeviceID)
	require.NoError(t, err)
	assert.Equal(t, byte(DeviceID), id)

	version, err := dev.ReadByte(AddressOffset + RegVersion)
	require.NoError(t, err)
	assert.Equal(t, byte(Version), version)
}

func TestInvalidAddresses(t *testing.T) {
	dev, _, _, _ := newTestDevice(t)

	tests := []struct {
		name string
		addr uint8
	}{
		{name: "below the device window", addr: 0x00},
		{name: "just below the offset", addr: AddressOffset - 1},
		{name: "just past the last register", addr: AddressOffset + Size},
		{name: "far past", addr: 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dev.ReadByte(tt.addr)
			assert.ErrorIs(t, err, ErrInvalidAddress)
			assert.ErrorIs(t, dev.WriteByte(tt.addr, 0x42), ErrInvalidAddress)
		})
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	dev, _, _, _ := newTestDevice(t)

	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointLo, 0xd0))
	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointHi, 0x07))

	lo, err := dev.ReadByte(AddressOffset + RegSetpointLo)
	require.NoError(t, err)
	hi, err := dev.ReadByte(AddressOffset + RegSetpointHi)
	require.NoError(t, err)
	assert.Equal(t, uint16(2000), uint16(lo)|uint16(hi)<<8)
}

func TestCommandTurnOn(t *testing.T) {
	dev, heat, _, _ := newTestDevice(t)

	// 200.0 degC = 2000 deci-degC = 0x07d0
	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointLo, 0xd0))
	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointHi, 0x07))
	require.NoError(t, dev.WriteByte(AddressOffset+RegCommand, CommandTurnOn))

	assert.Equal(t, heater.On, heat.State())
	assert.Equal(t, 200.0, heat.Setpoint())

	// the command register is one-shot
	cmd, err := dev.ReadByte(AddressOffset + RegCommand)
	require.NoError(t, err)
	assert.Equal(t, byte(CommandNone), cmd)
}

func TestCommandTurnOff(t *testing.T) {
	dev, heat, _, _ := newTestDevice(t)

	require.NoError(t, dev.WriteByte(AddressOffset+RegCommand, CommandTurnOn))
	require.Equal(t, heater.On, heat.State())

	require.NoError(t, dev.WriteByte(AddressOffset+RegCommand, CommandTurnOff))
	assert.Equal(t, heater.Off, heat.State())
}

func TestCommandApply(t *testing.T) {
	dev, heat, _, cfg := newTestDevice(t)

	// Kp 18.00 = 1800 = 0x0708, ambient timeout 45s
	require.NoError(t, dev.WriteByte(AddressOffset+RegKpLo, 0x08))
	require.NoError(t, dev.WriteByte(AddressOffset+RegKpHi, 0x07))
	require.NoError(t, dev.WriteByte(AddressOffset+RegAmbTimeoutLo, 45))
	require.NoError(t, dev.WriteByte(AddressOffset+RegAmbTimeoutHi, 0))
	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointLo, 0xd0))
	require.NoError(t, dev.WriteByte(AddressOffset+RegSetpointHi, 0x07))

	require.NoError(t, dev.WriteByte(AddressOffset+RegCommand, CommandApply))

	assert.Equal(t, 18.0, cfg.PID.Kp)
	assert.Equal(t, 45.0, cfg.Heater.AmbientTimeout)
	assert.Equal(t, 200.0, heat.Setpoint())
	assert.Equal(t, heater.Off, heat.State(), "apply must not change heater state")
}

func TestConfigSeededFromDefaults(t *testing.T) {
	dev, _, _, cfg := newTestDevice(t)

	lo, _ := dev.ReadByte(AddressOffset + RegKpLo)
	hi, _ := dev.ReadByte(AddressOffset + RegKpHi)
	assert.Equal(t, uint16(cfg.PID.Kp*100), uint16(lo)|uint16(hi)<<8)

	lo, _ = dev.ReadByte(AddressOffset + RegAmbTimeoutLo)
	hi, _ = dev.ReadByte(AddressOffset + RegAmbTimeoutHi)
	assert.Equal(t, uint16(cfg.Heater.AmbientTimeout), uint16(lo)|uint16(hi)<<8)
}

func TestRefresh(t *testing.T) {
	dev, heat, sens, _ := newTestDevice(t)

	require.NoError(t, heat.TurnOn())
	dev.Refresh()

	state, _ := dev.ReadByte(AddressOffset + RegHeaterState)
	assert.Equal(t, byte(heater.On), state)

	state, _ = dev.ReadByte(AddressOffset + RegSensorState)
	assert.Equal(t, byte(sensor.HasNoData), state)

	// no confirmed reading: the sentinel clamps to the register maximum
	lo, _ := dev.ReadByte(AddressOffset + RegTempLo)
	hi, _ := dev.ReadByte(AddressOffset + RegTempHi)
	assert.Equal(t, int16(32767), int16(uint16(lo)|uint16(hi)<<8))

	// a confirmed reading publishes in deci-degC
	for i := 0; i < 10; i++ {
		sens.SampleTick()
	}
	require.Equal(t, sensor.HasData, sens.State())
	dev.Refresh()

	lo, _ = dev.ReadByte(AddressOffset + RegTempLo)
	hi, _ = dev.ReadByte(AddressOffset + RegTempHi)
	assert.Equal(t, int16(sens.Temperature()*10), int16(uint16(lo)|uint16(hi)<<8))
}
