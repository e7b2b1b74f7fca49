// Package pid implements the discrete PID controller for heater regulation.
package pid

import (
	"math"

	"github.com/itohio/gotherm/pkg/config"
)

// Controller is a discrete PID controller with anti-windup and output
// saturation. It keeps integral and derivative state between calls; it
// has no failure modes.
type Controller struct {
	cfg *config.PIDConfig

	integral  float64
	prevError float64
}

// New creates a controller with the given gains and bounds.
func New(cfg *config.PIDConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Reset clears the integral and derivative history.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevError = 0
}

// Integral returns the current integral accumulator.
func (c *Controller) Integral() float64 { return c.integral }

// Update advances the controller by dt seconds and returns the actuation
// output, clamped to the configured [OutputMin, OutputMax]. The integral
// only accumulates while |error| exceeds epsilon, so a small steady-state
// error is not fought by an ever-growing integral term. Callers supply
// dt > 0.
func (c *Controller) Update(setpoint, measured, dt float64) float64 {
	err := setpoint - measured

	if math.Abs(err) > c.cfg.Epsilon {
		c.integral += err * dt
	}
	derivative := (err - c.prevError) / dt

	output := c.cfg.Kp*err + c.cfg.Ki*c.integral + c.cfg.Kd*derivative

	if output > c.cfg.OutputMax {
		output = c.cfg.OutputMax
	} else if output < c.cfg.OutputMin {
		output = c.cfg.OutputMin
	}

	c.prevError = err
	return output
}
