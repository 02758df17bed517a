package solenoid

import (
	"testing"
	"time"

	"toteguard.dev/clock"
	"toteguard.dev/iopin"
)

type fakeRaw struct {
	level  bool
	writes []bool
}

func (f *fakeRaw) Read() (bool, error) { return f.level, nil }
func (f *fakeRaw) Write(level bool) error {
	f.writes = append(f.writes, level)
	f.level = level
	return nil
}
func (f *fakeRaw) Close() error { return nil }

func newPair(t *testing.T) (*iopin.DigitalOutput, *fakeRaw, *iopin.DigitalOutput, *fakeRaw) {
	t.Helper()
	fwdRaw := &fakeRaw{}
	revRaw := &fakeRaw{}
	fwd, err := iopin.NewDigitalOutput(iopin.PinDescriptor{ActiveHigh: true}, fwdRaw)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := iopin.NewDigitalOutput(iopin.PinDescriptor{ActiveHigh: true}, revRaw)
	if err != nil {
		t.Fatal(err)
	}
	return fwd, fwdRaw, rev, revRaw
}

// TestNeverBothAsserted is property I3's "never simultaneously asserted"
// half: after Lock and after Unlock, fwd and rev are never both commanded on.
func TestNeverBothAsserted(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fwd, _, rev, _ := newPair(t)
	s := New(fwd, rev, 50*time.Millisecond, 100*time.Millisecond, clk)

	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if fwd.Get() && rev.Get() {
		t.Fatal("both coils asserted")
	}
	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	if fwd.Get() && rev.Get() {
		t.Fatal("both coils asserted")
	}
}

func TestLockDrivesDeadtimeThenFwd(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fwd, fwdRaw, rev, revRaw := newPair(t)
	s := New(fwd, rev, 50*time.Millisecond, 100*time.Millisecond, clk)

	start := clk.Now()
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if clk.Now().Sub(start) < 50*time.Millisecond {
		t.Fatalf("dead-time not observed: elapsed %s", clk.Now().Sub(start))
	}
	if !fwdRaw.level {
		t.Fatal("fwd coil not asserted after Lock")
	}
	if revRaw.level {
		t.Fatal("rev coil asserted after Lock")
	}
	if s.State() != Moving {
		t.Fatalf("state = %v, want Moving", s.State())
	}
}

func TestTickEnforcesMaxOnTime(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fwd, fwdRaw, rev, _ := newPair(t)
	s := New(fwd, rev, 0, 100*time.Millisecond, clk)

	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if !fwdRaw.level {
		t.Fatal("expected fwd asserted")
	}
	clk.Advance(50 * time.Millisecond)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if !fwdRaw.level {
		t.Fatal("coil de-asserted before max-on elapsed")
	}
	clk.Advance(60 * time.Millisecond)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if fwdRaw.level {
		t.Fatal("coil still asserted after max-on cap")
	}
}

func TestHintPositionSetsBeliefWithoutCoils(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fwd, fwdRaw, rev, revRaw := newPair(t)
	s := New(fwd, rev, 0, 100*time.Millisecond, clk)

	if err := s.HintPosition(Unlocked); err != nil {
		t.Fatal(err)
	}
	if s.State() != Unlocked {
		t.Fatalf("state = %v, want Unlocked", s.State())
	}
	if fwdRaw.level || revRaw.level {
		t.Fatal("HintPosition must not assert coils")
	}
}

func TestReentryIntoMovingFromAnyState(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	fwd, _, rev, _ := newPair(t)
	s := New(fwd, rev, 0, 100*time.Millisecond, clk)

	if err := s.HintPosition(Locked); err != nil {
		t.Fatal(err)
	}
	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Moving {
		t.Fatalf("state = %v, want Moving", s.State())
	}
}
