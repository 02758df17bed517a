// package safety evaluates the interlock predicate: a pure function from a
// snapshot of semantic sensor readings to the two booleans that gate the
// solenoid and motor outputs. It never touches hardware and cannot fail.
package safety

// ToteFull is a tri-state reading: Unknown is distinct from No and is
// treated as fail-safe (not allowed), never coerced to a bool.
type ToteFull int

const (
	ToteFullUnknown ToteFull = iota
	ToteFullYes
	ToteFullNo
)

// View is an immutable snapshot of the readings the evaluator consumes for
// one tick.
type View struct {
	MainsOK     bool
	PCBPowerOK  bool
	DoorClosed  bool
	TotePresent bool
	ToteFull    ToteFull
	FlapOpen    bool
}

// Decision is the evaluator's output for one tick.
type Decision struct {
	UnlockAllowed bool
	MotorAllowed  bool
}

// Evaluate computes the interlock decision for v. tote_full = Unknown fails
// safe: only a reading of exactly ToteFullNo permits unlocking.
func Evaluate(v View) Decision {
	unlockAllowed := v.DoorClosed && v.TotePresent && v.ToteFull == ToteFullNo && v.MainsOK && v.PCBPowerOK
	return Decision{
		UnlockAllowed: unlockAllowed,
		MotorAllowed:  unlockAllowed,
	}
}
