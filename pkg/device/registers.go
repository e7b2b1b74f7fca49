package device

import "errors"

// The host sees the device as a flat byte register file at a fixed
// offset. Multi-byte values are little endian.
const (
	// AddressOffset is where the device registers start in the host
	// address space. Addresses below it belong to the bus layer.
	AddressOffset = 0x20

	// Size is the number of device registers.
	Size = 0x20
)

// Register addresses, relative to AddressOffset.
const (
	RegDeviceID     = 0x00 // ro: identifies this device type
	RegVersion      = 0x01 // ro: firmware version
	RegHeaterState  = 0x02 // ro
	RegHeaterCode   = 0x03 // ro
	RegSensorState  = 0x04 // ro
	RegSensorCode   = 0x05 // ro
	RegTempLo       = 0x06 // ro: confirmed temperature, deci-degC signed
	RegTempHi       = 0x07
	RegDutyCycle    = 0x08 // ro: commanded duty, percent
	RegCommand      = 0x09 // rw: see Command values
	RegSetpointLo   = 0x0A // rw: deci-degC signed
	RegSetpointHi   = 0x0B
	RegKpLo         = 0x0C // rw: gain x100
	RegKpHi         = 0x0D
	RegKiLo         = 0x0E
	RegKiHi         = 0x0F
	RegKdLo         = 0x10
	RegKdHi         = 0x11
	RegAmbTimeoutLo = 0x12 // rw: seconds
	RegAmbTimeoutHi = 0x13
	RegRegTimeoutLo = 0x14 // rw: seconds
	RegRegTimeoutHi = 0x15
)

// Command register values.
const (
	CommandNone    = 0x00
	CommandTurnOn  = 0x01 // applies config registers, then starts the heater
	CommandTurnOff = 0x02
	CommandApply   = 0x03 // applies config registers without changing state
)

// DeviceID and Version are reported through the identification registers.
const (
	DeviceID = 0x74
	Version  = 0x01
)

// ErrInvalidAddress is reported for out-of-range register addresses.
var ErrInvalidAddress = errors.New("invalid register address")

// Registers is the raw register file. There are no read-only checks at
// this level; status registers are simply overwritten on every refresh.
type Registers struct {
	data [Size]byte
}

// ReadByte returns the register at the host-visible address.
func (r *Registers) ReadByte(addr uint8) (byte, error) {
	addr -= AddressOffset
	if addr >= Size {
		return 0, ErrInvalidAddress
	}
	return r.data[addr], nil
}

// WriteByte stores a value at the host-visible address.
func (r *Registers) WriteByte(addr uint8, value byte) error {
	addr -= AddressOffset
	if addr >= Size {
		return ErrInvalidAddress
	}
	r.data[addr] = value
	return nil
}

// put and the 16-bit accessors use device-relative addresses; callers
// guarantee range.
func (r *Registers) put(reg uint8, value byte) { r.data[reg] = value }

func (r *Registers) getU16(lo uint8) uint16 {
	return uint16(r.data[lo]) | uint16(r.data[lo+1])<<8
}

func (r *Registers) putU16(lo uint8, value uint16) {
	r.data[lo] = byte(value)
	r.data[lo+1] = byte(value >> 8)
}

func (r *Registers) getS16(lo uint8) int16 {
	return int16(r.getU16(lo))
}

func (r *Registers) putS16(lo uint8, value int16) {
	r.putU16(lo, uint16(value))
}
