//go:build linux

package hal

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/itohio/gotherm/pkg/config"
)

// Hardware drives the heater through the Linux GPIO character device and
// reads the thermocouple amplifier through an IIO sysfs ADC.
//
// The heater output is software PWM on a GPIO line. Heater loads are slow,
// so carrier frequencies in the tens of Hz are more than sufficient.
type Hardware struct {
	chip      *gpiocdev.Chip
	heater    *gpiocdev.Line
	led       *gpiocdev.Line
	iioDevice string

	mu     sync.Mutex
	duty   float64
	period time.Duration
	ledOn  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ ADC = (*Hardware)(nil)
	_ PWM = (*Hardware)(nil)
	_ LED = (*Hardware)(nil)
)

// NewHardware opens the GPIO lines and starts the software PWM loop.
func NewHardware(pins config.PinConfig) (*Hardware, error) {
	chip, err := gpiocdev.NewChip(pins.GPIOChip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	heaterLine, err := chip.RequestLine(pins.HeaterPin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request heater pin %d: %w", pins.HeaterPin, err)
	}

	ledLine, err := chip.RequestLine(pins.LEDPin, gpiocdev.AsOutput(0))
	if err != nil {
		heaterLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pins.LEDPin, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hardware{
		chip:      chip,
		heater:    heaterLine,
		led:       ledLine,
		iioDevice: pins.IIODevice,
		period:    10 * time.Millisecond, // 100 Hz until SetFrequency is called
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go h.pwmLoop()

	return h, nil
}

// Close forces the heater output off and releases GPIO resources.
func (h *Hardware) Close() error {
	h.cancel()
	<-h.done

	var errs []error
	if err := h.heater.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("force heater off: %w", err))
	}
	if err := h.heater.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close heater pin: %w", err))
	}
	if err := h.led.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close led pin: %w", err))
	}
	if err := h.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// ReadRaw reads the raw ADC value from the IIO device. Failures read as
// full scale, which the sensor classifies as a disconnected thermocouple.
func (h *Hardware) ReadRaw(channel int) uint16 {
	path := filepath.Join(h.iioDevice, fmt.Sprintf("in_voltage%d_raw", channel))
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("adc read %s: %v", path, err)
		return adcFullScale
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		log.Printf("adc parse %s: %v", path, err)
		return adcFullScale
	}
	if value > adcFullScale {
		value = adcFullScale
	}
	return uint16(value)
}

// SetFrequency sets the software PWM carrier frequency.
func (h *Hardware) SetFrequency(hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("invalid pwm frequency %f", hz)
	}

	h.mu.Lock()
	h.period = time.Duration(float64(time.Second) / hz)
	h.mu.Unlock()
	return nil
}

// SetDuty sets the heater duty cycle.
func (h *Hardware) SetDuty(percent float64) error {
	h.mu.Lock()
	if percent <= 0 || percent > 100 {
		h.duty = 0
	} else {
		h.duty = percent
	}
	h.mu.Unlock()
	return nil
}

// On turns the indicator LED on.
func (h *Hardware) On() { h.setLED(true) }

// Off turns the indicator LED off.
func (h *Hardware) Off() { h.setLED(false) }

// Toggle flips the indicator LED.
func (h *Hardware) Toggle() {
	h.mu.Lock()
	on := !h.ledOn
	h.mu.Unlock()
	h.setLED(on)
}

func (h *Hardware) setLED(on bool) {
	value := 0
	if on {
		value = 1
	}
	if err := h.led.SetValue(value); err != nil {
		log.Printf("led set: %v", err)
		return
	}
	h.mu.Lock()
	h.ledOn = on
	h.mu.Unlock()
}

// pwmLoop bit-bangs the heater line.
func (h *Hardware) pwmLoop() {
	defer close(h.done)

	for {
		if h.ctx.Err() != nil {
			return
		}

		h.mu.Lock()
		duty := h.duty
		period := h.period
		h.mu.Unlock()

		switch {
		case duty <= 0:
			h.setHeater(0)
			if !h.sleep(period) {
				return
			}
		case duty >= 100:
			h.setHeater(1)
			if !h.sleep(period) {
				return
			}
		default:
			on := time.Duration(float64(period) * duty / 100.0)
			h.setHeater(1)
			if !h.sleep(on) {
				return
			}
			h.setHeater(0)
			if !h.sleep(period - on) {
				return
			}
		}
	}
}

func (h *Hardware) setHeater(value int) {
	if err := h.heater.SetValue(value); err != nil {
		log.Printf("heater set: %v", err)
	}
}

// sleep waits for d or until Close. Returns false on shutdown.
func (h *Hardware) sleep(d time.Duration) bool {
	if d <= 0 {
		return h.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
