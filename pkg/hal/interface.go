// Package hal provides the hardware abstraction for the heater controller.
// The real implementation uses the Linux GPIO character device and an IIO ADC.
// The mock implementation simulates a thermal plant for development and tests.
package hal

// ADC reads raw thermocouple amplifier samples.
type ADC interface {
	// ReadRaw returns the raw 10-bit ADC reading for the given channel.
	// Read failures report as full-scale so the sensor classifies them
	// as a disconnected thermocouple rather than a valid temperature.
	ReadRaw(channel int) uint16
}

// PWM drives the heater output.
type PWM interface {
	// SetFrequency sets the PWM carrier frequency in Hz.
	SetFrequency(hz float64) error

	// SetDuty sets the duty cycle in percent. Zero and below turns the
	// output fully off, as does anything above 100.
	SetDuty(percent float64) error
}

// LED controls the indicator LED.
type LED interface {
	On()
	Off()
	Toggle()
}
