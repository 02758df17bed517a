//go:build linux

// package hostadc opens the I2C bus the ADS1115 sits on and returns the
// periph.io device handle. It exists only to keep periph.io/x/conn/v3/i2c
// out of the ads1115 package: *i2c.Dev already satisfies ads1115.Bus
// structurally (Tx(w, r []byte) error), so no adapter type is needed here
// either.
package hostadc

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Open returns an *i2c.Dev at addr on the named bus (e.g. "/dev/i2c-1"),
// together with the underlying bus as an io.Closer for shutdown release.
func Open(devName string, addr uint16) (*i2c.Dev, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("hostadc: periph host init: %w", err)
	}
	bus, err := i2creg.Open(devName)
	if err != nil {
		return nil, nil, fmt.Errorf("hostadc: open %s: %w", devName, err)
	}
	return &i2c.Dev{Addr: addr, Bus: bus}, bus, nil
}
