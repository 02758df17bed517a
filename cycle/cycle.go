// package cycle implements the motor-run state machine: Idle, awaiting a
// flap-open edge with motor_allowed true, and Running, accumulating current
// samples until one of five terminating conditions fires.
//
// The two states are modeled as a tagged variant (a private interface with
// two unexported implementations) rather than a nullable struct, so only
// the Running variant carries start-time and sample-buffer fields and the
// compiler rejects any attempt to read them while Idle.
package cycle

import (
	"time"

	"toteguard.dev/iopin"

	"toteguard.dev/clock"
)

// Reason is the closed set of ways a cycle can end.
type Reason int

const (
	Complete Reason = iota
	Overcurrent
	SafetyFault
	Timeout
	Shutdown
)

func (r Reason) String() string {
	switch r {
	case Complete:
		return "Complete"
	case Overcurrent:
		return "Overcurrent"
	case SafetyFault:
		return "SafetyFault"
	case Timeout:
		return "Timeout"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Record is the frozen result of one completed cycle.
type Record struct {
	Start        time.Time
	End          time.Time
	MeanCurrentA float64
	Reason       Reason
}

// state is a closed tagged union: cycleIdle or cycleRunning.
type state interface {
	isCycleState()
}

type cycleIdle struct{}

func (cycleIdle) isCycleState() {}

type cycleRunning struct {
	start   time.Time
	samples []float64
}

func (cycleRunning) isCycleState() {}

// Input is one tick's worth of information the engine needs to decide
// whether to start, continue, or end a cycle.
type Input struct {
	MotorAllowed  bool
	FlapOpen      bool
	CurrentSample *float64 // nil if no current reading was available this tick
	Shutdown      bool
}

// Engine owns the motor-enable output for the duration of a cycle.
type Engine struct {
	motor        *iopin.DigitalOutput
	overcurrentA float64
	maxRun       time.Duration
	clk          clock.Clock

	state state
	// flapWasOpen is FlapOpen as seen by the previous Step (false before
	// the first Step), so Idle→Running fires only on a flap-open edge.
	flapWasOpen bool
}

// New returns an Engine in the Idle state. motor is forced off by its own
// constructor before being passed in.
func New(motor *iopin.DigitalOutput, overcurrentA float64, maxRun time.Duration, clk clock.Clock) *Engine {
	return &Engine{motor: motor, overcurrentA: overcurrentA, maxRun: maxRun, clk: clk, state: cycleIdle{}}
}

// Running reports whether a cycle is currently in progress.
func (e *Engine) Running() bool {
	_, ok := e.state.(cycleRunning)
	return ok
}

// Step advances the engine by one supervisor tick. It returns a non-nil
// Record exactly when a cycle just ended this tick, and forceLock=true when
// the terminating reason requires the solenoid to be forced to Locked
// (Overcurrent or SafetyFault).
func (e *Engine) Step(in Input) (rec *Record, forceLock bool, err error) {
	flapOpened := in.FlapOpen && !e.flapWasOpen
	e.flapWasOpen = in.FlapOpen

	switch s := e.state.(type) {
	case cycleIdle:
		if flapOpened && in.MotorAllowed {
			if err := e.motor.Set(true); err != nil {
				return nil, false, err
			}
			e.state = cycleRunning{start: e.clk.Now()}
		}
		return nil, false, nil

	case cycleRunning:
		if in.CurrentSample != nil {
			s.samples = append(s.samples, *in.CurrentSample)
		}

		var reason Reason
		transition := false
		switch {
		case in.CurrentSample != nil && *in.CurrentSample > e.overcurrentA:
			reason, transition = Overcurrent, true
		case !in.MotorAllowed:
			reason, transition = SafetyFault, true
		case !in.FlapOpen:
			reason, transition = Complete, true
		case e.clk.Now().Sub(s.start) > e.maxRun:
			reason, transition = Timeout, true
		case in.Shutdown:
			reason, transition = Shutdown, true
		}

		if !transition {
			e.state = s
			return nil, false, nil
		}

		if err := e.motor.Set(false); err != nil {
			return nil, false, err
		}
		rec = &Record{
			Start:        s.start,
			End:          e.clk.Now(),
			MeanCurrentA: meanOf(s.samples),
			Reason:       reason,
		}
		e.state = cycleIdle{}
		forceLock = reason == Overcurrent || reason == SafetyFault
		return rec, forceLock, nil

	default:
		panic("cycle: unreachable state")
	}
}

func meanOf(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}
