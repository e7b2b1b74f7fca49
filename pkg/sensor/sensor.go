// Package sensor turns raw thermocouple samples into filtered, averaged,
// fault-checked temperature readings.
package sensor

import (
	"math"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/hal"
)

// State represents the sensor state machine.
type State int

const (
	Uninitialized State = iota
	HasNoData
	HasData
	Shutdown
)

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case HasNoData:
		return "HAS_NO_DATA"
	case HasData:
		return "HAS_DATA"
	case Shutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// Code carries diagnostic detail for the HasNoData and Shutdown states.
type Code int

const (
	CodeOK Code = iota
	CodeDisconnected
	CodeNoPower
	CodeBadReadings
)

// String returns a short name for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeDisconnected:
		return "DISCONNECTED"
	case CodeNoPower:
		return "NO_POWER"
	case CodeBadReadings:
		return "BAD_READINGS"
	}
	return "UNKNOWN"
}

// NoReading is the temperature reported while no trustworthy reading
// exists. It is far above anything a working thermocouple can produce,
// so callers treating it as a measurement will shut their load off.
const NoReading = 5778.0

// Sensor is the temperature sensor state machine. It is owned by the
// cooperative main context and mutated only by the 10ms tick path.
type Sensor struct {
	cfg *config.SensorConfig
	adc hal.ADC

	state State
	code  Code

	samples     int     // samples taken in the current window
	accumulator float64 // sum of accepted samples this window
	previous    float64 // last accepted sample, for the variance filter
	temperature float64 // confirmed reading from the last complete window
}

// New creates an uninitialized sensor. Call Init before sampling.
func New(cfg *config.SensorConfig, adc hal.ADC) *Sensor {
	return &Sensor{cfg: cfg, adc: adc}
}

// Init resets the sensor to its configured defaults and makes it ready
// to sample. It also clears a Shutdown fault.
func (s *Sensor) Init() {
	s.state = HasNoData
	s.code = CodeOK
	s.samples = 0
	s.accumulator = 0
	s.previous = 0
	s.temperature = NoReading
}

// StartReading begins a fresh accumulation window on the next SampleTick.
func (s *Sensor) StartReading() {
	s.samples = 0
}

// Temperature returns the confirmed reading, or NoReading while the
// sensor has no trustworthy data.
func (s *Sensor) Temperature() float64 {
	if s.state == HasData {
		return s.temperature
	}
	return NoReading
}

// HasData reports whether a confirmed reading is available.
func (s *Sensor) HasData() bool { return s.state == HasData }

// State returns the current sensor state.
func (s *Sensor) State() State { return s.state }

// Code returns the latest diagnostic code.
func (s *Sensor) Code() Code { return s.code }

// SampleTick takes one filtered sample. It is called once per 10ms tick.
// A window of SamplesPerReading accepted samples produces a confirmed
// reading; a sample that cannot be brought within the variance bound
// inside the retry budget shuts the sensor down.
func (s *Sensor) SampleTick() {
	if s.state == Uninitialized || s.state == Shutdown {
		return
	}
	s.code = CodeOK

	newWindow := false
	if s.samples == 0 {
		s.accumulator = 0
		newWindow = true
	}

	sample, ok := s.takeSample(newWindow)
	if !ok {
		s.state = Shutdown
		s.code = CodeBadReadings
		return
	}
	s.accumulator += sample

	if s.samples++; s.samples < s.cfg.SamplesPerReading {
		return // still in the sampling window
	}

	// window complete: record the average and classify it
	s.temperature = s.accumulator / float64(s.samples)

	switch {
	case s.temperature > s.cfg.DisconnectTemp:
		s.state = HasNoData
		s.code = CodeDisconnected
	case s.temperature < s.cfg.NoPowerTemp:
		s.state = HasNoData
		s.code = CodeNoPower
	default:
		s.state = HasData
	}
}

// takeSample converts one raw ADC reading to a temperature and rejects
// outliers. The first sample of a window is accepted unconditionally;
// later samples must be within the variance bound of the previous one,
// retried up to the configured budget. Thermocouple amplifiers throw
// occasional noise spikes, and bounding the retries keeps a broken
// amplifier from stalling the tick path.
func (s *Sensor) takeSample(newWindow bool) (float64, bool) {
	sample := s.convert(s.adc.ReadRaw(s.cfg.ADCChannel))

	if newWindow {
		s.previous = sample
		return sample, true
	}

	for retry := 0; ; retry++ {
		if math.Abs(sample-s.previous) < s.cfg.Variance {
			s.previous = sample
			return sample, true
		}
		if retry == s.cfg.Retries {
			return 0, false
		}
		sample = s.convert(s.adc.ReadRaw(s.cfg.ADCChannel))
	}
}

// convert applies the linear calibration: temperature = raw*slope + offset.
func (s *Sensor) convert(raw uint16) float64 {
	return float64(raw)*s.cfg.Slope + s.cfg.Offset
}
