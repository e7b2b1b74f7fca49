package hal

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/gotherm/pkg/config"
)

const adcFullScale = 1023 // 10-bit converter

// Mock simulates the heater hardware for testing and development.
// It models the plant as a first-order thermal lag driven by the duty
// cycle, and answers ADC reads with the calibrated inverse of the
// simulated temperature.
type Mock struct {
	cfg    *config.MockConfig
	sensor *config.SensorConfig

	mu           sync.Mutex
	duty         float64
	freq         float64
	temperature  float64
	lastStep     time.Time
	disconnected bool
	noPower      bool
	ledOn        bool
	ledToggles   int
}

var (
	_ ADC = (*Mock)(nil)
	_ PWM = (*Mock)(nil)
	_ LED = (*Mock)(nil)
)

// NewMock creates a mock HAL with the given plant and calibration parameters.
func NewMock(cfg *config.MockConfig, sensor *config.SensorConfig) *Mock {
	if cfg == nil {
		def := config.Default()
		cfg = &def.Mock
	}
	if sensor == nil {
		def := config.Default()
		sensor = &def.Sensor
	}

	return &Mock{
		cfg:         cfg,
		sensor:      sensor,
		temperature: cfg.AmbientTemp,
		lastStep:    time.Now(),
	}
}

// ReadRaw returns a simulated raw ADC reading.
func (m *Mock) ReadRaw(channel int) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disconnected {
		return adcFullScale // amplifier rails high with no thermocouple
	}
	if m.noPower {
		return 0
	}

	m.step(time.Now())

	// deterministic noise so tests stay repeatable
	t := float64(time.Now().UnixNano()) * 1e-9
	noise := (math.Sin(t*37.0) + math.Cos(t*53.0)) * m.cfg.NoiseLevel * 0.5

	raw := (m.temperature + noise - m.sensor.Offset) / m.sensor.Slope
	if raw < 0 {
		raw = 0
	} else if raw > adcFullScale {
		raw = adcFullScale
	}
	return uint16(raw)
}

// SetFrequency records the PWM frequency.
func (m *Mock) SetFrequency(hz float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freq = hz
	return nil
}

// SetDuty sets the simulated heater drive.
func (m *Mock) SetDuty(percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.step(time.Now())
	if percent <= 0 || percent > 100 {
		m.duty = 0
	} else {
		m.duty = percent
	}
	return nil
}

// On turns the simulated LED on.
func (m *Mock) On() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledOn = true
}

// Off turns the simulated LED off.
func (m *Mock) Off() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledOn = false
}

// Toggle flips the simulated LED.
func (m *Mock) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledOn = !m.ledOn
	m.ledToggles++
}

// SetDisconnected simulates an unplugged thermocouple.
func (m *Mock) SetDisconnected(disconnected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = disconnected
}

// SetNoPower simulates a powered-down thermocouple amplifier.
func (m *Mock) SetNoPower(noPower bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noPower = noPower
}

// Temperature returns the current simulated plant temperature.
func (m *Mock) Temperature() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step(time.Now())
	return m.temperature
}

// LEDState returns the simulated LED state and the number of toggles seen.
func (m *Mock) LEDState() (on bool, toggles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledOn, m.ledToggles
}

// step advances the first-order plant model to now. Callers hold m.mu.
func (m *Mock) step(now time.Time) {
	dt := now.Sub(m.lastStep).Seconds()
	m.lastStep = now
	if dt <= 0 || m.cfg.TimeConstant <= 0 {
		return
	}

	target := m.cfg.AmbientTemp + (m.duty/100.0)*(m.cfg.FullDutyTemp-m.cfg.AmbientTemp)
	alpha := dt / m.cfg.TimeConstant
	if alpha > 1 {
		alpha = 1
	}
	m.temperature += alpha * (target - m.temperature)
}
