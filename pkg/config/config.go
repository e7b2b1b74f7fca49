package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the controller configuration.
type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Heater    HeaterConfig    `yaml:"heater"`
	PID       PIDConfig       `yaml:"pid"`
	PWM       PWMConfig       `yaml:"pwm"`
	Channel   ChannelConfig   `yaml:"channel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Pins      PinConfig       `yaml:"pins"`
	Mock      MockConfig      `yaml:"mock"`
}

// SensorConfig contains thermocouple sampling and calibration parameters.
type SensorConfig struct {
	ADCChannel        int     `yaml:"adc_channel"`         // ADC channel the thermocouple amplifier is wired to
	Slope             float64 `yaml:"slope"`               // linear calibration: temperature = raw*slope + offset
	Offset            float64 `yaml:"offset"`              // calibration intercept (degC)
	SamplesPerReading int     `yaml:"samples_per_reading"` // samples accumulated per confirmed reading
	Retries           int     `yaml:"retries"`             // retry budget for out-of-variance samples
	Variance          float64 `yaml:"variance"`            // max allowed change between consecutive samples (degC)
	DisconnectTemp    float64 `yaml:"disconnect_temp"`     // readings above this mean the thermocouple is disconnected
	NoPowerTemp       float64 `yaml:"no_power_temp"`       // readings below this mean the amplifier has no power
}

// HeaterConfig contains regulation limits and safety timeouts.
type HeaterConfig struct {
	Setpoint           float64 `yaml:"setpoint"`             // initial setpoint (degC); normally set via the host channel
	AmbientTimeout     float64 `yaml:"ambient_timeout"`      // seconds to get out of ambient before shutdown
	RegulationTimeout  float64 `yaml:"regulation_timeout"`   // seconds to reach setpoint before shutdown
	AmbientTemp        float64 `yaml:"ambient_temp"`         // temperature below which the heater is considered ambient
	OverheatTemp       float64 `yaml:"overheat_temp"`        // cutoff temperature
	RegulationBand     float64 `yaml:"regulation_band"`      // +/- band around setpoint counted as at-temperature (degC)
	AtTemperatureDwell float64 `yaml:"at_temperature_dwell"` // seconds inside the band before declaring at-temperature
}

// PIDConfig contains controller gains and output saturation bounds.
type PIDConfig struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	OutputMin float64 `yaml:"output_min"` // saturation filter, in duty-cycle percent
	OutputMax float64 `yaml:"output_max"`
	Epsilon   float64 `yaml:"epsilon"` // integration freezes when |error| <= epsilon
}

// PWMConfig contains heater output configuration.
type PWMConfig struct {
	Frequency float64 `yaml:"frequency"` // Hz
}

// ChannelConfig contains host command channel configuration.
type ChannelConfig struct {
	Port     string `yaml:"port"` // serial port; empty disables the channel
	BaudRate int    `yaml:"baud_rate"`
}

// TelemetryConfig contains MQTT status publishing configuration.
type TelemetryConfig struct {
	Broker string `yaml:"broker"` // broker URL; empty disables telemetry
	Topic  string `yaml:"topic"`
}

// PinConfig contains hardware pin and device assignments.
type PinConfig struct {
	GPIOChip  string `yaml:"gpio_chip"`
	HeaterPin int    `yaml:"heater_pin"`
	LEDPin    int    `yaml:"led_pin"`
	IIODevice string `yaml:"iio_device"` // sysfs path of the IIO ADC device
}

// MockConfig contains simulated-plant parameters for the mock HAL.
type MockConfig struct {
	AmbientTemp  float64 `yaml:"ambient_temp"`   // plant temperature with the heater off (degC)
	FullDutyTemp float64 `yaml:"full_duty_temp"` // steady-state temperature at 100% duty (degC)
	TimeConstant float64 `yaml:"time_constant"`  // first-order thermal lag (seconds)
	NoiseLevel   float64 `yaml:"noise_level"`    // peak deterministic noise (degC)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			ADCChannel:        0,
			Slope:             1.456355556, // from bench calibration of the AD597 + K-type probe
			Offset:            -120.7135972,
			SamplesPerReading: 10, // one confirmed reading per 100ms heater tick
			Retries:           4,
			Variance:          20.0,
			DisconnectTemp:    400.0,
			NoPowerTemp:       -30.0,
		},
		Heater: HeaterConfig{
			Setpoint:           0.0,
			AmbientTimeout:     90.0,
			RegulationTimeout:  300.0,
			AmbientTemp:        40.0,
			OverheatTemp:       300.0,
			RegulationBand:     2.0,
			AtTemperatureDwell: 1.0,
		},
		PID: PIDConfig{
			Kp:        20.0,
			Ki:        1.0,
			Kd:        100.0,
			OutputMin: 0.0,
			OutputMax: 100.0,
			Epsilon:   0.01,
		},
		PWM: PWMConfig{
			Frequency: 100.0,
		},
		Channel: ChannelConfig{
			Port:     "", // e.g. "/dev/ttyACM0", empty = channel disabled
			BaudRate: 115200,
		},
		Telemetry: TelemetryConfig{
			Broker: "", // e.g. "tcp://192.168.1.200:1883", empty = disabled
			Topic:  "gotherm/status",
		},
		Pins: PinConfig{
			GPIOChip:  "gpiochip0",
			HeaterPin: 18,
			LEDPin:    17,
			IIODevice: "/sys/bus/iio/devices/iio:device0",
		},
		Mock: MockConfig{
			AmbientTemp:  21.0,
			FullDutyTemp: 320.0,
			TimeConstant: 8.0,
			NoiseLevel:   0.05,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Slope == 0 {
		c.Sensor.Slope = def.Sensor.Slope
	}
	if c.Sensor.Offset == 0 {
		c.Sensor.Offset = def.Sensor.Offset
	}
	if c.Sensor.SamplesPerReading == 0 {
		c.Sensor.SamplesPerReading = def.Sensor.SamplesPerReading
	}
	if c.Sensor.Retries == 0 {
		c.Sensor.Retries = def.Sensor.Retries
	}
	if c.Sensor.Variance == 0 {
		c.Sensor.Variance = def.Sensor.Variance
	}
	if c.Sensor.DisconnectTemp == 0 {
		c.Sensor.DisconnectTemp = def.Sensor.DisconnectTemp
	}
	if c.Sensor.NoPowerTemp == 0 {
		c.Sensor.NoPowerTemp = def.Sensor.NoPowerTemp
	}

	if c.Heater.AmbientTimeout == 0 {
		c.Heater.AmbientTimeout = def.Heater.AmbientTimeout
	}
	if c.Heater.RegulationTimeout == 0 {
		c.Heater.RegulationTimeout = def.Heater.RegulationTimeout
	}
	if c.Heater.AmbientTemp == 0 {
		c.Heater.AmbientTemp = def.Heater.AmbientTemp
	}
	if c.Heater.OverheatTemp == 0 {
		c.Heater.OverheatTemp = def.Heater.OverheatTemp
	}
	if c.Heater.RegulationBand == 0 {
		c.Heater.RegulationBand = def.Heater.RegulationBand
	}
	if c.Heater.AtTemperatureDwell == 0 {
		c.Heater.AtTemperatureDwell = def.Heater.AtTemperatureDwell
	}

	if c.PID.Kp == 0 {
		c.PID.Kp = def.PID.Kp
	}
	if c.PID.OutputMax == 0 {
		c.PID.OutputMax = def.PID.OutputMax
	}
	if c.PID.Epsilon == 0 {
		c.PID.Epsilon = def.PID.Epsilon
	}

	if c.PWM.Frequency == 0 {
		c.PWM.Frequency = def.PWM.Frequency
	}

	if c.Channel.BaudRate == 0 {
		c.Channel.BaudRate = def.Channel.BaudRate
	}

	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = def.Telemetry.Topic
	}

	if c.Pins.GPIOChip == "" {
		c.Pins.GPIOChip = def.Pins.GPIOChip
	}
	if c.Pins.HeaterPin == 0 {
		c.Pins.HeaterPin = def.Pins.HeaterPin
	}
	if c.Pins.LEDPin == 0 {
		c.Pins.LEDPin = def.Pins.LEDPin
	}
	if c.Pins.IIODevice == "" {
		c.Pins.IIODevice = def.Pins.IIODevice
	}

	if c.Mock.AmbientTemp == 0 {
		c.Mock.AmbientTemp = def.Mock.AmbientTemp
	}
	if c.Mock.FullDutyTemp == 0 {
		c.Mock.FullDutyTemp = def.Mock.FullDutyTemp
	}
	if c.Mock.TimeConstant == 0 {
		c.Mock.TimeConstant = def.Mock.TimeConstant
	}
	if c.Mock.NoiseLevel == 0 {
		c.Mock.NoiseLevel = def.Mock.NoiseLevel
	}
}
