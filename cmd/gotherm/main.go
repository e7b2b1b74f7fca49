// Command gotherm runs the closed-loop heater temperature controller:
// it samples the thermocouple, regulates the heater through the PID
// loop, exposes the register file to the host channel, and publishes
// status telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/device"
	"github.com/itohio/gotherm/pkg/dispatch"
	"github.com/itohio/gotherm/pkg/hal"
	"github.com/itohio/gotherm/pkg/heater"
	"github.com/itohio/gotherm/pkg/pid"
	"github.com/itohio/gotherm/pkg/sensor"
	"github.com/itohio/gotherm/pkg/telemetry"
	"github.com/itohio/gotherm/pkg/tick"
)

// tickPeriod is the base tick the scheduler divides into the 10ms,
// 100ms and 1s cadences.
const tickPeriod = 10 * time.Millisecond

func main() {
	configPath := flag.String("config", "gotherm.yaml", "Configuration file")
	mock := flag.Bool("mock", false, "Simulate the heater hardware")
	setpoint := flag.Float64("setpoint", 0, "Setpoint override; starts the heater immediately (degC)")
	flag.Parse()

	if err := run(*configPath, *mock, *setpoint); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, mock bool, setpoint float64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Hardware abstraction
	var (
		adc hal.ADC
		pwm hal.PWM
		led hal.LED
	)
	if mock {
		m := hal.NewMock(&cfg.Mock, &cfg.Sensor)
		adc, pwm, led = m, m, m
		log.Printf("running against the mock plant")
	} else {
		hw, err := hal.NewHardware(cfg.Pins)
		if err != nil {
			return fmt.Errorf("init hardware: %w", err)
		}
		defer hw.Close()
		adc, pwm, led = hw, hw, hw
	}

	// Controllers
	sens := sensor.New(&cfg.Sensor, adc)
	sens.Init()

	pidctl := pid.New(&cfg.PID)

	heat := heater.New(&cfg.Heater, sens, pidctl, pwm)
	heat.Init()

	if err := pwm.SetFrequency(cfg.PWM.Frequency); err != nil {
		return fmt.Errorf("set pwm frequency: %w", err)
	}
	led.On()

	// Host command channel
	dev := device.New(cfg, heat, sens)
	channel, err := device.OpenChannel(&cfg.Channel, dev)
	if err != nil {
		return fmt.Errorf("open host channel: %w", err)
	}
	if channel != nil {
		defer channel.Close()
		log.Printf("host channel on %s", cfg.Channel.Port)
	}

	// Telemetry (best effort)
	var publisher telemetry.Publisher
	if cfg.Telemetry.Broker != "" {
		pub, err := telemetry.NewRealPublisher(cfg.Telemetry.Broker, cfg.Telemetry.Topic)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			publisher = pub
			defer pub.Close()
			log.Printf("telemetry to %s topic %s", cfg.Telemetry.Broker, cfg.Telemetry.Topic)
		}
	}

	if setpoint > 0 {
		heat.SetSetpoint(setpoint)
		if err := heat.TurnOn(); err != nil {
			return fmt.Errorf("start heater: %w", err)
		}
		log.Printf("heating to %.1f degC", setpoint)
	}

	sched := tick.New(
		sens.SampleTick,
		func() {
			heat.Tick()
			dev.Refresh()
		},
		func() {
			housekeeping(heat, sens, led, publisher)
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The OS timer stands in for the hardware tick interrupt.
	go func() {
		ticker := time.NewTicker(tickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sched.Interrupt()
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("shutting down: %v", sig)
		cancel()
	}()

	// The host channel outranks temperature control within a turn.
	commPoll := func() dispatch.Status { return dispatch.NotApplicable }
	if channel != nil {
		commPoll = channel.Poll
	}
	tickPoll := func() dispatch.Status {
		if sched.Poll() == tick.NoTick {
			return dispatch.NotApplicable
		}
		return dispatch.Done
	}

	dispatch.New(commPoll, tickPoll).Run(ctx)

	// force the output off on the way out
	if err := pwm.SetDuty(0); err != nil {
		log.Printf("disable heater output: %v", err)
	}
	led.Off()

	return nil
}

// housekeeping runs at the 1s cadence: fault indication on the LED and
// a status snapshot to the broker.
func housekeeping(heat *heater.Controller, sens *sensor.Sensor, led hal.LED, publisher telemetry.Publisher) {
	if heat.State() == heater.Shutdown || sens.State() == sensor.Shutdown {
		led.Toggle() // blink while latched in a fault
	} else {
		led.On()
	}

	if publisher == nil {
		return
	}
	snap := telemetry.Snapshot{
		Time:        time.Now(),
		HeaterState: heat.State().String(),
		HeaterCode:  heat.Code().String(),
		SensorState: sens.State().String(),
		SensorCode:  sens.Code().String(),
		Temperature: sens.Temperature(),
		Setpoint:    heat.Setpoint(),
		Duty:        heat.Duty(),
	}
	if err := publisher.Publish(snap); err != nil {
		log.Printf("telemetry publish: %v", err)
	}
}
