package heater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/pid"
	"github.com/itohio/gotherm/pkg/sensor"
	"github.com/itohio/gotherm/pkg/tick"
)

type constADC struct{ value uint16 }

func (a constADC) ReadRaw(channel int) uint16 { return a.value }

// TestRegulationLoop drives the full 10ms/100ms chain: the scheduler
// feeds the sensor, the sensor feeds the heater, and the heater settles
// into AtTemperature when the plant sits inside the band.
func TestRegulationLoop(t *testing.T) {
	cfg := config.Default()

	// raw 200 reads as ~170.56 degC under the default calibration
	sens := sensor.New(&cfg.Sensor, constADC{value: 200})
	sens.Init()

	pwm := &fakePWM{}
	heat := New(&cfg.Heater, sens, pid.New(&cfg.PID), pwm)
	heat.Init()
	heat.SetSetpoint(170.0)

	sched := tick.New(sens.SampleTick, heat.Tick, nil)

	require.NoError(t, heat.TurnOn())

	poll := func(n int) {
		for i := 0; i < n; i++ {
			sched.Interrupt()
			sched.Poll()
		}
	}

	// the first confirmed reading and the first heater tick land on the
	// same 100ms boundary, so one boundary is enough to enter Heating
	poll(10)
	assert.Equal(t, Heating, heat.State())
	assert.Equal(t, sensor.HasData, sens.State())
	assert.InDelta(t, 170.56, heat.Temperature(), 0.1)

	// inside the band the dwell runs out after 1s of heater ticks
	poll(110)
	assert.Equal(t, AtTemperature, heat.State())
	assert.Equal(t, CodeOK, heat.Code())
}
