// package iopin implements polarity-aware, debounced digital GPIO pins.
//
// A PinDescriptor identifies a line on some host GPIO chip together with
// its electrical polarity; DigitalInput and DigitalOutput translate that
// raw electrical level to and from a logical on/off value. The raw pin
// access itself is abstracted behind RawIn/RawOut so the host binding
// (driver/hostgpio) never leaks into this package, and so tests can supply
// in-memory fakes.
package iopin

import (
	"fmt"
	"time"

	"toteguard.dev/clock"
)

// PinDescriptor identifies a GPIO line and its polarity. It is immutable
// once constructed.
type PinDescriptor struct {
	Chip       string
	Line       int
	ActiveHigh bool
}

func (d PinDescriptor) String() string {
	return fmt.Sprintf("%s:%d", d.Chip, d.Line)
}

// RawIn is the raw, polarity-unaware input side of a GPIO line.
type RawIn interface {
	// Read returns the raw electrical level: true means the line is
	// physically high.
	Read() (bool, error)
	Close() error
}

// RawOut is the raw, polarity-unaware output side of a GPIO line.
type RawOut interface {
	// Write drives the raw electrical level: true drives the line high.
	Write(level bool) error
	Close() error
}

// DigitalOutput drives a PinDescriptor to a logical level, translating
// through ActiveHigh. The commanded value is forced OFF on construction and
// on Close.
type DigitalOutput struct {
	desc      PinDescriptor
	raw       RawOut
	commanded bool
}

// NewDigitalOutput wraps raw as desc and immediately drives it OFF.
func NewDigitalOutput(desc PinDescriptor, raw RawOut) (*DigitalOutput, error) {
	o := &DigitalOutput{desc: desc, raw: raw}
	if err := o.Set(false); err != nil {
		return nil, fmt.Errorf("iopin: init output %s: %w", desc, err)
	}
	return o, nil
}

// Set commands the logical level, respecting active-high/active-low polarity.
func (o *DigitalOutput) Set(level bool) error {
	o.commanded = level
	raw := level
	if !o.desc.ActiveHigh {
		raw = !raw
	}
	return o.raw.Write(raw)
}

// Get returns the last commanded logical level.
func (o *DigitalOutput) Get() bool {
	return o.commanded
}

// Close forces the output OFF, then releases the underlying raw pin.
func (o *DigitalOutput) Close() error {
	setErr := o.Set(false)
	closeErr := o.raw.Close()
	if setErr != nil {
		return setErr
	}
	return closeErr
}

// DigitalInput is a debounced, polarity-aware digital input. The reported
// stable value only changes once the raw reading has held the new logical
// level continuously for at least the debounce window; any glitch back to
// the current stable value restarts that window (see ReadDebounced).
type DigitalInput struct {
	desc      PinDescriptor
	raw       RawIn
	debounce  time.Duration
	clk       clock.Clock
	lastStable bool
	lastChange time.Time
}

// NewDigitalInput wraps raw as desc with the given debounce window. The
// initial stable value is the first raw reading.
func NewDigitalInput(desc PinDescriptor, raw RawIn, debounce time.Duration, clk clock.Clock) (*DigitalInput, error) {
	d := &DigitalInput{desc: desc, raw: raw, debounce: debounce, clk: clk}
	v, err := d.rawLevel()
	if err != nil {
		return nil, fmt.Errorf("iopin: init input %s: %w", desc, err)
	}
	d.lastStable = v
	d.lastChange = clk.Now()
	return d, nil
}

// rawLevel reads the raw pin and applies polarity, without debouncing.
func (d *DigitalInput) rawLevel() (bool, error) {
	raw, err := d.raw.Read()
	if err != nil {
		return false, err
	}
	if !d.desc.ActiveHigh {
		raw = !raw
	}
	return raw, nil
}

// Read returns the polarity-adjusted instantaneous level, bypassing
// debounce. Used by timing-sensitive callers (ultrasonic echo edges) that
// cannot tolerate a debounce window on the scale of their measurement.
func (d *DigitalInput) Read() (bool, error) {
	return d.rawLevel()
}

// ReadDebounced returns the debounced stable value. On a raw read error the
// previous stable value is returned unchanged, together with the error:
// callers that want the "last known good" fallback (spec: mains_ok) can use
// the returned value as-is.
func (d *DigitalInput) ReadDebounced() (bool, error) {
	v, err := d.rawLevel()
	if err != nil {
		return d.lastStable, err
	}
	now := d.clk.Now()
	if v != d.lastStable {
		if now.Sub(d.lastChange) >= d.debounce {
			d.lastStable = v
			d.lastChange = now
		}
	} else {
		d.lastChange = now
	}
	return d.lastStable, nil
}

// Close releases the underlying raw pin.
func (d *DigitalInput) Close() error {
	return d.raw.Close()
}
