// package ultrasonic implements HC-SR04-style trigger/echo distance
// measurement: a short trigger pulse is issued, and the distance is derived
// from the width of the echo pulse that follows.
package ultrasonic

import (
	"time"

	"toteguard.dev/clock"
	"toteguard.dev/iopin"
)

const (
	triggerSettle = 2 * time.Microsecond
	triggerPulse  = 10 * time.Microsecond
	// speedOfSoundCmPerSec is the speed of sound used to convert an echo
	// round-trip time into a one-way distance in centimeters.
	speedOfSoundCmPerSec = 34300.0
)

// Sensor is a single HC-SR04-style ranger wired to a trigger output and an
// echo input.
type Sensor struct {
	trig    *iopin.DigitalOutput
	echo    *iopin.DigitalInput
	timeout time.Duration
	clk     clock.Clock
}

// New returns a Sensor driving trig and reading echo, with timeout applied
// independently to both the rising and falling edge wait.
func New(trig *iopin.DigitalOutput, echo *iopin.DigitalInput, timeout time.Duration, clk clock.Clock) *Sensor {
	return &Sensor{trig: trig, echo: echo, timeout: timeout, clk: clk}
}

// MeasureCM issues a trigger pulse and times the echo. ok is false (Unknown)
// if either edge does not arrive within the timeout; the trigger is never
// left asserted, even on timeout.
func (s *Sensor) MeasureCM() (cm float64, ok bool, err error) {
	if err := s.trig.Set(false); err != nil {
		return 0, false, err
	}
	s.clk.Sleep(triggerSettle)
	if err := s.trig.Set(true); err != nil {
		return 0, false, err
	}
	s.clk.Sleep(triggerPulse)
	if err := s.trig.Set(false); err != nil {
		return 0, false, err
	}

	if !s.waitFor(true) {
		return 0, false, nil
	}
	start := s.clk.Now()
	if !s.waitFor(false) {
		return 0, false, nil
	}
	end := s.clk.Now()

	dt := end.Sub(start)
	return dt.Seconds() * speedOfSoundCmPerSec / 2.0, true, nil
}

// waitFor busy-waits for the echo pin to reach level, returning false if the
// timeout elapses first.
func (s *Sensor) waitFor(level bool) bool {
	deadline := s.clk.Now().Add(s.timeout)
	for {
		v, err := s.echo.Read()
		if err == nil && v == level {
			return true
		}
		if s.clk.Now().After(deadline) {
			return false
		}
	}
}
