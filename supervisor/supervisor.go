// package supervisor drives the 100Hz control loop: it owns every actuator
// and sensor device, and on each tick runs sensing, the safety evaluator,
// solenoid maintenance, and one step of the cycle engine in that fixed
// order. It is the only component with a notion of program lifetime
// (boot, run, shutdown).
package supervisor

import (
	"io"
	"log"
	"sync/atomic"
	"time"

	"toteguard.dev/clock"
	"toteguard.dev/config"
	"toteguard.dev/cycle"
	"toteguard.dev/cyclelog"
	"toteguard.dev/safety"
	"toteguard.dev/sensing"
	"toteguard.dev/solenoid"
)

const statusLogPeriod = time.Second

// Supervisor wires the control loop together. Devices is every raw handle
// (GPIO lines, I2C bus) opened during construction, in construction order;
// shutdown releases them in reverse.
type Supervisor struct {
	sol  *solenoid.Solenoid
	sens *sensing.Sensing
	eng  *cycle.Engine
	log  *cyclelog.Writer
	cfg  config.Config
	clk  clock.Clock

	devices []io.Closer

	tickPeriod time.Duration
	pulseHold  time.Duration

	running   atomic.Bool
	lastDebug time.Time
}

// New returns a Supervisor ready to Run. running starts true.
func New(sol *solenoid.Solenoid, sens *sensing.Sensing, eng *cycle.Engine, cyclelogW *cyclelog.Writer, cfg config.Config, clk clock.Clock, devices []io.Closer) *Supervisor {
	s := &Supervisor{
		sol:        sol,
		sens:       sens,
		eng:        eng,
		log:        cyclelogW,
		cfg:        cfg,
		clk:        clk,
		devices:    devices,
		tickPeriod: 10 * time.Millisecond,
		pulseHold:  time.Duration(cfg.Solenoid.PulseHoldMs) * time.Millisecond,
	}
	s.running.Store(true)
	return s
}

// RequestShutdown asks the loop to stop after completing its current tick.
// Safe to call from a signal handler.
func (s *Supervisor) RequestShutdown() {
	s.running.Store(false)
}

// Run executes boot, then the tick loop until a shutdown is requested, then
// shutdown cleanup. It returns the first error encountered releasing
// devices on the way out, if any; tick-level errors are logged and do not
// stop the loop (TransientSensor/LogWriteFailure never crash it).
func (s *Supervisor) Run() error {
	if err := s.boot(); err != nil {
		return err
	}
	for {
		shutdownRequested := !s.running.Load()
		if err := s.tick(shutdownRequested); err != nil {
			log.Printf("supervisor: tick error: %v", err)
		}
		if shutdownRequested {
			break
		}
		s.clk.Sleep(s.tickPeriod)
	}
	return s.finalizeShutdown()
}

// boot initializes all outputs to OFF (already done by the iopin
// constructors) and commands the initial lock/unlock state from a single
// safety evaluation.
func (s *Supervisor) boot() error {
	r := s.sens.Read()
	dec := safety.Evaluate(toView(r))
	return s.applySolenoidDecision(dec.UnlockAllowed)
}

// tick runs one iteration of the §4.9 sequence.
func (s *Supervisor) tick(shutdown bool) error {
	if err := s.sol.Tick(); err != nil {
		return err
	}

	r := s.sens.Read()
	dec := safety.Evaluate(toView(r))

	if err := s.applySolenoidDecision(dec.UnlockAllowed); err != nil {
		return err
	}

	rec, forceLock, err := s.eng.Step(cycle.Input{
		MotorAllowed:  dec.MotorAllowed,
		FlapOpen:      r.FlapOpen,
		CurrentSample: r.MotorCurrentA,
		Shutdown:      shutdown,
	})
	if err != nil {
		return err
	}
	if rec != nil {
		if err := s.log.Append(*rec); err != nil {
			log.Printf("supervisor: cycle log write failed: %v", err)
		}
	}
	if forceLock {
		if err := s.applySolenoidDecision(false); err != nil {
			return err
		}
	}

	now := s.clk.Now()
	if now.Sub(s.lastDebug) >= statusLogPeriod {
		log.Printf("supervisor: solenoid=%s cycle_running=%v flap_open=%v motor_allowed=%v tote_full=%v",
			s.sol.State(), s.eng.Running(), r.FlapOpen, dec.MotorAllowed, r.ToteFull)
		s.lastDebug = now
	}

	return nil
}

// applySolenoidDecision issues a lock/unlock pulse and hints the new
// believed position, skipping the commutation entirely if the solenoid
// already believes it is in the target state.
func (s *Supervisor) applySolenoidDecision(unlockAllowed bool) error {
	target := solenoid.Locked
	if unlockAllowed {
		target = solenoid.Unlocked
	}
	if s.sol.State() == target {
		return nil
	}
	var err error
	if target == solenoid.Unlocked {
		err = s.sol.Unlock()
	} else {
		err = s.sol.Lock()
	}
	if err != nil {
		return err
	}
	s.clk.Sleep(s.pulseHold)
	return s.sol.HintPosition(target)
}

// finalizeShutdown forces the lock and releases every device in reverse
// construction order. It is called once, after the tick loop exits.
func (s *Supervisor) finalizeShutdown() error {
	if err := s.applySolenoidDecision(false); err != nil {
		log.Printf("supervisor: force-lock on shutdown failed: %v", err)
	}

	var firstErr error
	for i := len(s.devices) - 1; i >= 0; i-- {
		if err := s.devices[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func toView(r sensing.Reading) safety.View {
	return safety.View{
		MainsOK:     r.MainsOK,
		PCBPowerOK:  r.PCBPowerOK,
		DoorClosed:  r.DoorClosed,
		TotePresent: r.TotePresent,
		ToteFull:    r.ToteFull,
		FlapOpen:    r.FlapOpen,
	}
}
