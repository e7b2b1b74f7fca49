// Package device exposes the controller to the host as a register-mapped
// peripheral: a flat byte register file carrying configuration and
// status, reachable over a line-oriented serial command channel.
package device

import (
	"log"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/heater"
	"github.com/itohio/gotherm/pkg/sensor"
)

// Fixed-point scaling used by the register file.
const (
	tempScale = 10.0  // deci-degC
	gainScale = 100.0 // gains x100
)

// Device binds the register file to the controllers. Registers are only
// touched from the cooperative main context, so no locking is needed.
type Device struct {
	regs   Registers
	cfg    *config.Config
	heater *heater.Controller
	sensor *sensor.Sensor
}

// New creates a Device and seeds the configuration registers from the
// loaded configuration.
func New(cfg *config.Config, h *heater.Controller, s *sensor.Sensor) *Device {
	d := &Device{cfg: cfg, heater: h, sensor: s}

	d.regs.put(RegDeviceID, DeviceID)
	d.regs.put(RegVersion, Version)
	d.regs.putS16(RegSetpointLo, clampS16(cfg.Heater.Setpoint*tempScale))
	d.regs.putU16(RegKpLo, clampU16(cfg.PID.Kp*gainScale))
	d.regs.putU16(RegKiLo, clampU16(cfg.PID.Ki*gainScale))
	d.regs.putU16(RegKdLo, clampU16(cfg.PID.Kd*gainScale))
	d.regs.putU16(RegAmbTimeoutLo, clampU16(cfg.Heater.AmbientTimeout))
	d.regs.putU16(RegRegTimeoutLo, clampU16(cfg.Heater.RegulationTimeout))

	return d
}

// ReadByte reads a register at the host-visible address.
func (d *Device) ReadByte(addr uint8) (byte, error) {
	return d.regs.ReadByte(addr)
}

// WriteByte writes a register at the host-visible address. Writing the
// command register executes the command immediately; the register reads
// back as CommandNone afterwards.
func (d *Device) WriteByte(addr uint8, value byte) error {
	if err := d.regs.WriteByte(addr, value); err != nil {
		return err
	}

	if addr == AddressOffset+RegCommand {
		d.execute(value)
		d.regs.put(RegCommand, CommandNone)
	}
	return nil
}

// Refresh publishes the current controller state into the status
// registers. It is called on every 100ms tick, after the heater ran.
func (d *Device) Refresh() {
	d.regs.put(RegHeaterState, byte(d.heater.State()))
	d.regs.put(RegHeaterCode, byte(d.heater.Code()))
	d.regs.put(RegSensorState, byte(d.sensor.State()))
	d.regs.put(RegSensorCode, byte(d.sensor.Code()))
	d.regs.putS16(RegTempLo, clampS16(d.sensor.Temperature()*tempScale))
	d.regs.put(RegDutyCycle, byte(clampU16(d.heater.Duty())))
}

// execute runs a command register write.
func (d *Device) execute(command byte) {
	switch command {
	case CommandNone:
	case CommandTurnOn:
		d.applyConfig()
		if err := d.heater.TurnOn(); err != nil {
			log.Printf("host turn on: %v", err)
		}
	case CommandTurnOff:
		if err := d.heater.TurnOff(); err != nil {
			log.Printf("host turn off: %v", err)
		}
	case CommandApply:
		d.applyConfig()
	default:
		log.Printf("host command 0x%02x ignored", command)
	}
}

// applyConfig pushes the writable configuration registers into the
// controllers. Gains take effect through the shared PID configuration.
func (d *Device) applyConfig() {
	d.heater.SetSetpoint(float64(d.regs.getS16(RegSetpointLo)) / tempScale)

	d.cfg.PID.Kp = float64(d.regs.getU16(RegKpLo)) / gainScale
	d.cfg.PID.Ki = float64(d.regs.getU16(RegKiLo)) / gainScale
	d.cfg.PID.Kd = float64(d.regs.getU16(RegKdLo)) / gainScale

	d.cfg.Heater.AmbientTimeout = float64(d.regs.getU16(RegAmbTimeoutLo))
	d.cfg.Heater.RegulationTimeout = float64(d.regs.getU16(RegRegTimeoutLo))
}

func clampS16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func clampU16(v float64) uint16 {
	if v > 65535 {
		return 65535
	}
	if v < 0 {
		return 0
	}
	return uint16(v)
}
