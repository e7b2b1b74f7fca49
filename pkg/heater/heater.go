// Package heater owns the heater regulation lifecycle: it consumes
// confirmed sensor readings, drives the PID controller into the PWM
// output, and enforces the safety timeouts that shut the heater down
// when regulation cannot be achieved.
package heater

import (
	"errors"
	"log"
	"math"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/hal"
	"github.com/itohio/gotherm/pkg/pid"
)

// State represents the heater state machine.
type State int

const (
	Uninitialized State = iota
	Off
	On
	Heating
	AtTemperature
	Cooling
	Shutdown
)

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Off:
		return "OFF"
	case On:
		return "ON"
	case Heating:
		return "HEATING"
	case AtTemperature:
		return "AT_TEMPERATURE"
	case Cooling:
		return "COOLING"
	case Shutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// Code carries diagnostic detail for the Shutdown state.
type Code int

const (
	CodeOK Code = iota
	CodeAmbientTimedOut
	CodeRegulationTimedOut
	CodeOverheated
)

// String returns a short name for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeAmbientTimedOut:
		return "AMBIENT_TIMED_OUT"
	case CodeRegulationTimedOut:
		return "REGULATION_TIMED_OUT"
	case CodeOverheated:
		return "OVERHEATED"
	}
	return "UNKNOWN"
}

// ErrNotConfigured is returned when the heater is commanded before Init.
var ErrNotConfigured = errors.New("heater not initialized")

// TickSeconds is the heater control period. Tick is driven from the
// 100ms cadence of the tick scheduler.
const TickSeconds = 0.1

// TemperatureSource is the read-only view of the temperature sensor the
// heater regulates against.
type TemperatureSource interface {
	// StartReading begins a fresh sampling window.
	StartReading()
	// HasData reports whether a confirmed reading is available.
	HasData() bool
	// Temperature returns the confirmed reading, or an unsafe sentinel.
	Temperature() float64
}

// Controller is the heater regulation state machine. It is owned by the
// cooperative main context and advanced only by the 100ms tick path.
type Controller struct {
	cfg    *config.HeaterConfig
	source TemperatureSource
	pid    *pid.Controller
	pwm    hal.PWM

	state           State
	code            Code
	temperature     float64
	setpoint        float64
	regulationTicks int     // ticks spent in Heating, meaningful only there
	dwellTicks      int     // ticks continuously inside the regulation band
	duty            float64 // last commanded duty cycle
}

// ticksIn converts a configured duration in seconds to whole control
// ticks. All regulation timing is counted in ticks so configured
// boundaries land on the exact tick.
func ticksIn(seconds float64) int {
	return int(math.Round(seconds / TickSeconds))
}

// New creates an uninitialized controller. Call Init before use.
func New(cfg *config.HeaterConfig, source TemperatureSource, pidctl *pid.Controller, pwm hal.PWM) *Controller {
	return &Controller{cfg: cfg, source: source, pid: pidctl, pwm: pwm}
}

// Init resets the controller to its configured defaults: state Off, no
// fault, setpoint from configuration, output forced off.
func (c *Controller) Init() {
	c.state = Off
	c.code = CodeOK
	c.temperature = 0
	c.setpoint = c.cfg.Setpoint
	c.regulationTicks = 0
	c.dwellTicks = 0
	c.setDuty(0)
}

// SetSetpoint sets the regulation target in degrees C.
func (c *Controller) SetSetpoint(temperature float64) {
	c.setpoint = temperature
}

// Setpoint returns the regulation target.
func (c *Controller) Setpoint() float64 { return c.setpoint }

// State returns the current heater state.
func (c *Controller) State() State { return c.state }

// Code returns the latest diagnostic code. Fault codes persist until the
// next TurnOn.
func (c *Controller) Code() Code { return c.code }

// Temperature returns the reading the regulation loop last acted on.
func (c *Controller) Temperature() float64 { return c.temperature }

// RegulationElapsed returns the seconds spent in the current Heating
// window. It is meaningful only while the state is Heating.
func (c *Controller) RegulationElapsed() float64 { return float64(c.regulationTicks) * TickSeconds }

// Duty returns the last commanded duty cycle in percent.
func (c *Controller) Duty() float64 { return c.duty }

// TurnOn starts regulation. From Shutdown it performs a full reinit
// first, clearing the fault; the configured setpoint survives the
// reinit so a cleared fault does not silently drop the target.
func (c *Controller) TurnOn() error {
	switch c.state {
	case Uninitialized:
		return ErrNotConfigured
	case Shutdown:
		setpoint := c.setpoint
		c.Init()
		c.setpoint = setpoint
		c.state = On
	case Off, Cooling:
		c.state = On
	}
	return nil
}

// TurnOff stops regulation and forces the output off.
func (c *Controller) TurnOff() error {
	switch c.state {
	case Uninitialized:
		return ErrNotConfigured
	case On, Heating, AtTemperature:
		c.state = Off
		c.setDuty(0)
	}
	return nil
}

// Tick advances the regulation state machine. It is called once per
// 100ms boundary. Each tick requests a fresh sensor window; the state
// machine only advances once confirmed readings are flowing, so the
// safety timers never run against garbage data.
func (c *Controller) Tick() {
	switch c.state {
	case Uninitialized, Off, Shutdown:
		return
	}

	c.source.StartReading()
	if !c.source.HasData() {
		return
	}
	c.temperature = c.source.Temperature()

	if c.state == Cooling {
		return // monitoring only
	}

	// cutoff applies in every powered state
	if c.temperature > c.cfg.OverheatTemp {
		c.shutdown(CodeOverheated)
		return
	}

	switch c.state {
	case On:
		// transition state: arm the regulation window
		c.regulationTicks = 0
		c.dwellTicks = 0
		c.pid.Reset()
		c.state = Heating

	case Heating:
		c.regulationTicks++

		if c.temperature < c.cfg.AmbientTemp && c.regulationTicks >= ticksIn(c.cfg.AmbientTimeout) {
			c.shutdown(CodeAmbientTimedOut)
			return
		}
		if c.temperature < c.setpoint && c.regulationTicks >= ticksIn(c.cfg.RegulationTimeout) {
			c.shutdown(CodeRegulationTimedOut)
			return
		}

		if math.Abs(c.temperature-c.setpoint) <= c.cfg.RegulationBand {
			c.dwellTicks++
			if c.dwellTicks >= ticksIn(c.cfg.AtTemperatureDwell) {
				c.state = AtTemperature
			}
		} else {
			c.dwellTicks = 0
		}

		c.drive()

	case AtTemperature:
		if math.Abs(c.temperature-c.setpoint) > c.cfg.RegulationBand {
			// drifted out of the band: regulate again on a fresh window
			c.state = Heating
			c.regulationTicks = 0
			c.dwellTicks = 0
		}
		c.drive()
	}
}

// drive runs one PID update and pushes the result to the PWM output.
func (c *Controller) drive() {
	c.setDuty(c.pid.Update(c.setpoint, c.temperature, TickSeconds))
}

// shutdown latches a fatal fault. Only TurnOn clears it.
func (c *Controller) shutdown(code Code) {
	c.state = Shutdown
	c.code = code
	c.setDuty(0)
}

func (c *Controller) setDuty(percent float64) {
	c.duty = percent
	if err := c.pwm.SetDuty(percent); err != nil {
		log.Printf("heater pwm duty: %v", err)
	}
}
