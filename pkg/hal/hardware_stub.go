//go:build !linux

package hal

import (
	"fmt"

	"github.com/itohio/gotherm/pkg/config"
)

// Hardware is unavailable off-Linux; use the mock HAL instead.
type Hardware struct{}

// NewHardware always fails on non-Linux platforms.
func NewHardware(pins config.PinConfig) (*Hardware, error) {
	return nil, fmt.Errorf("hardware HAL requires linux gpio character device support")
}

// Close is a no-op on the stub.
func (h *Hardware) Close() error { return nil }

// ReadRaw reads as a disconnected thermocouple.
func (h *Hardware) ReadRaw(channel int) uint16 { return adcFullScale }

// SetFrequency is a no-op on the stub.
func (h *Hardware) SetFrequency(hz float64) error { return nil }

// SetDuty is a no-op on the stub.
func (h *Hardware) SetDuty(percent float64) error { return nil }

// On is a no-op on the stub.
func (h *Hardware) On() {}

// Off is a no-op on the stub.
func (h *Hardware) Off() {}

// Toggle is a no-op on the stub.
func (h *Hardware) Toggle() {}
