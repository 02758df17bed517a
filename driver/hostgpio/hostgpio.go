//go:build linux

// package hostgpio binds iopin.RawIn/RawOut to real GPIO lines via
// periph.io, the same library the bcm283x joystick/button driver in the
// retrieved reference uses. Pins are looked up by name through gpioreg, so
// any periph.io-registered host (bcm283x, or others periph.io supports) can
// back a PinDescriptor without this package naming a specific chip.
package hostgpio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"toteguard.dev/iopin"
)

var (
	initOnce sync.Once
	initErr  error
)

func ensureInit() error {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	return initErr
}

func lookup(desc iopin.PinDescriptor) (gpio.PinIO, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("hostgpio: periph host init: %w", err)
	}
	name := fmt.Sprintf("GPIO%d", desc.Line)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("hostgpio: no such pin %s (%s)", name, desc)
	}
	return pin, nil
}

type in struct{ pin gpio.PinIO }

// OpenIn configures desc as a digital input, leaving its pull setting
// unchanged.
func OpenIn(desc iopin.PinDescriptor) (iopin.RawIn, error) {
	pin, err := lookup(desc)
	if err != nil {
		return nil, err
	}
	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hostgpio: configure input %s: %w", desc, err)
	}
	return &in{pin: pin}, nil
}

func (i *in) Read() (bool, error) { return i.pin.Read() == gpio.High, nil }

// Close is a no-op: periph.io pins are process-global registry entries, not
// exclusively-owned handles.
func (i *in) Close() error { return nil }

type out struct{ pin gpio.PinIO }

// OpenOut configures desc as a digital output, initially undriven.
func OpenOut(desc iopin.PinDescriptor) (iopin.RawOut, error) {
	pin, err := lookup(desc)
	if err != nil {
		return nil, err
	}
	return &out{pin: pin}, nil
}

func (o *out) Write(level bool) error {
	l := gpio.Low
	if level {
		l = gpio.High
	}
	return o.pin.Out(l)
}

func (o *out) Close() error { return nil }
