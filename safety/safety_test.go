package safety

import "testing"

func nominal() View {
	return View{
		MainsOK:     true,
		PCBPowerOK:  true,
		DoorClosed:  true,
		TotePresent: true,
		ToteFull:    ToteFullNo,
		FlapOpen:    true,
	}
}

func TestNominalAllowsUnlockAndMotor(t *testing.T) {
	d := Evaluate(nominal())
	if !d.UnlockAllowed || !d.MotorAllowed {
		t.Fatalf("d = %+v, want both allowed", d)
	}
}

// TestToteFullUnknownFailsSafe is property I5.
func TestToteFullUnknownFailsSafe(t *testing.T) {
	v := nominal()
	v.ToteFull = ToteFullUnknown
	d := Evaluate(v)
	if d.UnlockAllowed || d.MotorAllowed {
		t.Fatalf("d = %+v, want both denied on Unknown tote_full", d)
	}
}

func TestToteFullYesDeniesUnlock(t *testing.T) {
	v := nominal()
	v.ToteFull = ToteFullYes
	d := Evaluate(v)
	if d.UnlockAllowed {
		t.Fatal("full tote must deny unlock")
	}
}

func TestEachFactorIsNecessary(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*View)
	}{
		{"door open", func(v *View) { v.DoorClosed = false }},
		{"tote absent", func(v *View) { v.TotePresent = false }},
		{"mains down", func(v *View) { v.MainsOK = false }},
		{"pcb power down", func(v *View) { v.PCBPowerOK = false }},
	}
	for _, c := range cases {
		v := nominal()
		c.modify(&v)
		d := Evaluate(v)
		if d.UnlockAllowed || d.MotorAllowed {
			t.Fatalf("%s: d = %+v, want both denied", c.name, d)
		}
	}
}

func TestMotorAllowedEqualsUnlockAllowed(t *testing.T) {
	for _, v := range []View{nominal(), {}} {
		d := Evaluate(v)
		if d.MotorAllowed != d.UnlockAllowed {
			t.Fatalf("motor_allowed and unlock_allowed diverged: %+v", d)
		}
	}
}
