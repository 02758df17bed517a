// package solenoid drives a double-acting locking solenoid: two coils
// (forward/lock, reverse/unlock) that are never asserted at the same time,
// separated by a dead-time on every polarity change, and capped so neither
// coil stays asserted longer than a maximum on-time.
//
// There is no position feedback: the reported State is an optimistic belief
// derived from which coil was last commanded or hinted, never from a sensor.
// Safety decisions never depend on it (see package safety); the supervisor
// uses it only to avoid redundant commutation.
package solenoid

import (
	"time"

	"toteguard.dev/clock"
	"toteguard.dev/iopin"
)

// State is the believed mechanical state of the solenoid.
type State int

const (
	Unknown State = iota
	Locked
	Unlocked
	Moving
)

func (s State) String() string {
	switch s {
	case Locked:
		return "Locked"
	case Unlocked:
		return "Unlocked"
	case Moving:
		return "Moving"
	default:
		return "Unknown"
	}
}

// Solenoid is a double-acting coil pair with dead-time and on-time capping.
type Solenoid struct {
	fwd, rev *iopin.DigitalOutput
	deadtime time.Duration
	maxOn    time.Duration
	clk      clock.Clock

	state   State
	onStart time.Time
	onSet   bool
}

// New returns a Solenoid with both coils off and state Unknown.
func New(fwd, rev *iopin.DigitalOutput, deadtime, maxOn time.Duration, clk clock.Clock) *Solenoid {
	return &Solenoid{fwd: fwd, rev: rev, deadtime: deadtime, maxOn: maxOn, clk: clk, state: Unknown}
}

// State returns the current believed state.
func (s *Solenoid) State() State {
	return s.state
}

// Lock de-asserts both coils, waits the dead-time, then asserts the forward
// (lock) coil and enters Moving.
func (s *Solenoid) Lock() error {
	return s.commute(s.fwd)
}

// Unlock de-asserts both coils, waits the dead-time, then asserts the
// reverse (unlock) coil and enters Moving.
func (s *Solenoid) Unlock() error {
	return s.commute(s.rev)
}

func (s *Solenoid) commute(target *iopin.DigitalOutput) error {
	if err := s.allOff(); err != nil {
		return err
	}
	s.clk.Sleep(s.deadtime)
	if err := target.Set(true); err != nil {
		return err
	}
	s.onStart = s.clk.Now()
	s.onSet = true
	s.state = Moving
	return nil
}

// Hold de-asserts both coils without changing the believed state; the
// caller is expected to assert the true state separately via HintPosition.
func (s *Solenoid) Hold() error {
	return s.allOff()
}

func (s *Solenoid) allOff() error {
	if err := s.fwd.Set(false); err != nil {
		return err
	}
	if err := s.rev.Set(false); err != nil {
		return err
	}
	s.onSet = false
	return nil
}

// Tick enforces the on-time cap: called once per supervisor iteration, it
// forces both coils off if a coil has been asserted longer than maxOn.
func (s *Solenoid) Tick() error {
	if !s.onSet {
		return nil
	}
	if s.clk.Now().Sub(s.onStart) > s.maxOn {
		return s.allOff()
	}
	return nil
}

// HintPosition records independent evidence (e.g. a completed commutation
// pulse) that the mechanism has reached target. target must be Locked or
// Unlocked. Both coils are forced off.
func (s *Solenoid) HintPosition(target State) error {
	if target != Locked && target != Unlocked {
		panic("solenoid: HintPosition target must be Locked or Unlocked")
	}
	if err := s.allOff(); err != nil {
		return err
	}
	s.state = target
	return nil
}
