// package sensing composes the debounced digital inputs, the ultrasonic
// rangers, and the ADC driver into the semantic readings the safety
// evaluator and cycle engine consume. Every sensor error is absorbed here
// and converted to the conservative fallback called out in the design; no
// error crosses this package's boundary.
package sensing

import (
	"math"
	"time"

	"toteguard.dev/ads1115"
	"toteguard.dev/clock"
	"toteguard.dev/config"
	"toteguard.dev/iopin"
	"toteguard.dev/safety"
	"toteguard.dev/ultrasonic"
)

const (
	ctBiasSamples = 50
	ctBiasPeriod  = 500 * time.Microsecond // ~2 kS/s
)

// Reading is one tick's worth of semantic sensor state.
type Reading struct {
	MainsOK       bool
	DoorClosed    bool
	FlapOpen      bool
	TotePresent   bool
	ToteFull      safety.ToteFull
	FillPercent   *float64
	PCBPowerOK    bool
	MotorCurrentA *float64
}

// Sensing owns every sensor-side device; the Supervisor calls Read once per
// tick.
type Sensing struct {
	door  *iopin.DigitalInput
	flap  *iopin.DigitalInput
	mains *iopin.DigitalInput

	totePresent *ultrasonic.Sensor
	toteLevel   *ultrasonic.Sensor

	adc *ads1115.Device // nil if ADC.Enabled = false

	cfg config.Config
	clk clock.Clock
}

// New composes already-constructed devices with cfg. adc may be nil when
// cfg.ADC.Enabled is false.
func New(door, flap, mains *iopin.DigitalInput, totePresent, toteLevel *ultrasonic.Sensor, adc *ads1115.Device, cfg config.Config, clk clock.Clock) *Sensing {
	return &Sensing{door: door, flap: flap, mains: mains, totePresent: totePresent, toteLevel: toteLevel, adc: adc, cfg: cfg, clk: clk}
}

// Read produces one Reading, applying the conservative fallback for every
// sensor that errors or times out this tick.
func (s *Sensing) Read() Reading {
	var r Reading

	if s.cfg.Thresholds.MainsRequired {
		v, _ := s.mains.ReadDebounced()
		r.MainsOK = v
	} else {
		r.MainsOK = true
	}

	r.DoorClosed, _ = s.door.ReadDebounced()
	r.FlapOpen, _ = s.flap.ReadDebounced()

	if cm, ok, err := s.totePresent.MeasureCM(); err == nil && ok {
		r.TotePresent = cm <= s.cfg.Thresholds.TotePresentMaxCm
	} else {
		r.TotePresent = false
	}

	if cm, ok, err := s.toteLevel.MeasureCM(); err == nil && ok {
		if cm <= s.cfg.Thresholds.ToteLevelFullCm {
			r.ToteFull = safety.ToteFullYes
		} else {
			r.ToteFull = safety.ToteFullNo
		}
		pct := fillPercent(cm, s.cfg.Thresholds.ToteLevelFullCm, s.cfg.Thresholds.ToteLevelEmptyCm)
		r.FillPercent = &pct
	} else {
		r.ToteFull = safety.ToteFullUnknown
		r.FillPercent = nil
	}

	r.PCBPowerOK, r.MotorCurrentA = s.readADC()

	return r
}

func (s *Sensing) readADC() (pcbPowerOK bool, currentA *float64) {
	if !s.cfg.ADC.Enabled || s.adc == nil {
		return true, nil
	}

	v5OK := true
	if s.cfg.ADC.ChV5 != nil {
		v, err := s.adc.ReadChannel(*s.cfg.ADC.ChV5)
		if err != nil {
			return false, nil
		}
		v5OK = v*s.cfg.ADC.ScaleV5 >= s.cfg.Thresholds.V5Min
	}
	v33OK := true
	if s.cfg.ADC.ChV33 != nil {
		v, err := s.adc.ReadChannel(*s.cfg.ADC.ChV33)
		if err != nil {
			return false, nil
		}
		v33OK = v*s.cfg.ADC.ScaleV33 >= s.cfg.Thresholds.V33Min
	}
	pcbPowerOK = v5OK && v33OK

	if s.cfg.ADC.ChMotorCurrent == nil {
		return pcbPowerOK, nil
	}
	amps, err := s.readCurrent(*s.cfg.ADC.ChMotorCurrent)
	if err != nil {
		return pcbPowerOK, nil
	}
	return pcbPowerOK, &amps
}

func (s *Sensing) readCurrent(ch int) (float64, error) {
	switch s.cfg.ADC.CurrentMode {
	case config.CurrentModeCTBias:
		var sumSq float64
		for i := 0; i < ctBiasSamples; i++ {
			v, err := s.adc.ReadChannel(ch)
			if err != nil {
				return 0, err
			}
			d := v - s.cfg.ADC.CtBiasVmid
			sumSq += d * d
			s.clk.Sleep(ctBiasPeriod)
		}
		rms := math.Sqrt(sumSq / float64(ctBiasSamples))
		return rms * s.cfg.ADC.CurrentScale, nil
	default: // config.CurrentModeTransducer
		v, err := s.adc.ReadChannel(ch)
		if err != nil {
			return 0, err
		}
		return v * s.cfg.ADC.CurrentScale, nil
	}
}

// fillPercent implements pct = 100 * clamp((empty-d)/(empty-full), 0, 1).
func fillPercent(d, full, empty float64) float64 {
	frac := (empty - d) / (empty - full)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return 100 * frac
}
