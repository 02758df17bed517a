// package ads1115 drives a single ADS1115 4-channel, 16-bit ADC in
// single-shot mode over an I2C-like byte transport.
//
// The transport is the minimal interface a periph.io/x/conn/v3/i2c.Dev
// already satisfies structurally (Tx(w, r []byte) error), so callers can
// pass a real i2c.Dev without any adapter type; this package never imports
// periph.io itself.
package ads1115

import (
	"fmt"
	"time"

	"toteguard.dev/clock"
)

// Bus is the byte-oriented transport a device sits behind. A
// periph.io/x/conn/v3/i2c.Dev satisfies this interface without modification.
type Bus interface {
	Tx(w, r []byte) error
}

const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgOSStart     = 0x8000
	cfgMuxBase     = 0x4000 // single-ended AIN0..AIN3, channel in bits 12-14
	cfgPGA4096mV   = 0x0200
	cfgModeSingle  = 0x0100
	cfgDR860SPS    = 0x00E0
	cfgCompDisable = 0x0003

	fullScaleVolts = 4.096
	fullScaleCodes = 32768.0

	pollCeiling = 50 * time.Millisecond
	pollPeriod  = 1 * time.Millisecond
)

// Device is a single ADS1115 on bus.
type Device struct {
	bus Bus
	clk clock.Clock
}

// New returns a Device communicating over bus.
func New(bus Bus, clk clock.Clock) *Device {
	return &Device{bus: bus, clk: clk}
}

// ReadChannel starts a single-shot conversion on the given channel (0-3) and
// returns the result in volts once the conversion completes. It returns an
// error if the device does not report ready within the poll ceiling.
func (d *Device) ReadChannel(channel int) (float64, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("ads1115: channel %d out of range", channel)
	}
	config := uint16(cfgOSStart) | (cfgMuxBase + uint16(channel)<<12) | cfgPGA4096mV | cfgModeSingle | cfgDR860SPS | cfgCompDisable
	if err := d.writeReg(regConfig, config); err != nil {
		return 0, fmt.Errorf("ads1115: start conversion: %w", err)
	}

	deadline := d.clk.Now().Add(pollCeiling)
	for {
		cfg, err := d.readReg(regConfig)
		if err != nil {
			return 0, fmt.Errorf("ads1115: poll config: %w", err)
		}
		if cfg&cfgOSStart != 0 {
			break
		}
		if d.clk.Now().After(deadline) {
			return 0, fmt.Errorf("ads1115: conversion did not complete within %s", pollCeiling)
		}
		d.clk.Sleep(pollPeriod)
	}

	raw, err := d.readReg(regConversion)
	if err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return float64(int16(raw)) / fullScaleCodes * fullScaleVolts, nil
}

func (d *Device) writeReg(reg byte, value uint16) error {
	w := []byte{reg, byte(value >> 8), byte(value)}
	return d.bus.Tx(w, nil)
}

func (d *Device) readReg(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := d.bus.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}
