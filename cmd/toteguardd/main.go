// command toteguardd runs the safety-interlocked control loop for one
// tote/flap/motor/solenoid appliance.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"

	"periph.io/x/conn/v3/i2c"

	"toteguard.dev/ads1115"
	"toteguard.dev/clock"
	"toteguard.dev/config"
	"toteguard.dev/cycle"
	"toteguard.dev/cyclelog"
	"toteguard.dev/driver/hostadc"
	"toteguard.dev/driver/hostgpio"
	"toteguard.dev/iopin"
	"toteguard.dev/sensing"
	"toteguard.dev/solenoid"
	"toteguard.dev/supervisor"
	"toteguard.dev/ultrasonic"
)

func main() {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toteguardd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/toteguardd/config.toml", "path to TOML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	built, err := buildRig(cfg)
	if err != nil {
		return fmt.Errorf("toteguardd: init: %w", err)
	}

	sup := supervisor.New(built.solenoid, built.sensing, built.cycleEngine, built.cycleLog, cfg, clock.System{}, built.devices)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("toteguardd: received %s, shutting down", sig)
		sup.RequestShutdown()
	}()

	log.Println("toteguardd: starting control loop")
	return sup.Run()
}

// rig holds every device the supervisor needs, freshly opened.
type rig struct {
	solenoid    *solenoid.Solenoid
	sensing     *sensing.Sensing
	cycleEngine *cycle.Engine
	cycleLog    *cyclelog.Writer
	devices     []closer
}

type closer = io.Closer

// buildRig opens every GPIO line and, if enabled, the I2C bus, retrying
// each open with a bounded backoff before giving up (FatalInit).
func buildRig(cfg config.Config) (*rig, error) {
	var devices []closer

	openIn := func(desc iopin.PinDescriptor, debounce time.Duration) (*iopin.DigitalInput, error) {
		var raw iopin.RawIn
		if err := retryOpen(desc.String(), func() error {
			r, err := hostgpio.OpenIn(desc)
			raw = r
			return err
		}); err != nil {
			return nil, err
		}
		in, err := iopin.NewDigitalInput(desc, raw, debounce, clock.System{})
		if err != nil {
			return nil, err
		}
		devices = append(devices, in)
		return in, nil
	}

	openOut := func(desc iopin.PinDescriptor) (*iopin.DigitalOutput, error) {
		var raw iopin.RawOut
		if err := retryOpen(desc.String(), func() error {
			r, err := hostgpio.OpenOut(desc)
			raw = r
			return err
		}); err != nil {
			return nil, err
		}
		out, err := iopin.NewDigitalOutput(desc, raw)
		if err != nil {
			return nil, err
		}
		devices = append(devices, out)
		return out, nil
	}

	debounce := time.Duration(cfg.Thresholds.DebounceMs) * time.Millisecond
	timeout := time.Duration(cfg.Thresholds.UltrasonicTimeoutS * float64(time.Second))

	door, err := openIn(cfg.Pins.DoorClosed, debounce)
	if err != nil {
		return nil, err
	}
	flap, err := openIn(cfg.Pins.FlapOpen, debounce)
	if err != nil {
		return nil, err
	}
	mains, err := openIn(cfg.Pins.Mains, debounce)
	if err != nil {
		return nil, err
	}
	motor, err := openOut(cfg.Pins.MotorEnable)
	if err != nil {
		return nil, err
	}
	fwd, err := openOut(cfg.Pins.SolenoidFwd)
	if err != nil {
		return nil, err
	}
	rev, err := openOut(cfg.Pins.SolenoidRev)
	if err != nil {
		return nil, err
	}

	presentTrig, err := openOut(cfg.Pins.TotePresentTrig)
	if err != nil {
		return nil, err
	}
	presentEcho, err := openIn(cfg.Pins.TotePresentEcho, debounce)
	if err != nil {
		return nil, err
	}
	levelTrig, err := openOut(cfg.Pins.ToteLevelTrig)
	if err != nil {
		return nil, err
	}
	levelEcho, err := openIn(cfg.Pins.ToteLevelEcho, debounce)
	if err != nil {
		return nil, err
	}

	totePresent := ultrasonic.New(presentTrig, presentEcho, timeout, clock.System{})
	toteLevel := ultrasonic.New(levelTrig, levelEcho, timeout, clock.System{})

	var adc *ads1115.Device
	if cfg.ADC.Enabled {
		var dev *i2c.Dev
		if err := retryOpen("i2c:"+cfg.ADC.I2CDev, func() error {
			d, bus, err := hostadc.Open(cfg.ADC.I2CDev, cfg.ADC.Addr)
			if err != nil {
				return err
			}
			dev = d
			devices = append(devices, bus)
			return nil
		}); err != nil {
			return nil, err
		}
		adc = ads1115.New(dev, clock.System{})
	}

	sens := sensing.New(door, flap, mains, totePresent, toteLevel, adc, cfg, clock.System{})
	sol := solenoid.New(fwd, rev, time.Duration(cfg.Solenoid.DeadtimeMs)*time.Millisecond, time.Duration(cfg.Solenoid.MaxOnS)*time.Second, clock.System{})
	eng := cycle.New(motor, cfg.Thresholds.MotorOvercurrentA, time.Duration(cfg.Thresholds.MotorMaxRunS*float64(time.Second)), clock.System{})

	cycleLog, err := cyclelog.New(cfg.Paths.CycleLogCSV)
	if err != nil {
		return nil, fmt.Errorf("toteguardd: cycle log: %w", err)
	}

	return &rig{solenoid: sol, sensing: sens, cycleEngine: eng, cycleLog: cycleLog, devices: devices}, nil
}

// retryOpen bounds startup device-open retries; exhausting them is a
// FatalInit condition and aborts before the control loop starts.
func retryOpen(what string, open func() error) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	if err := backoff.Retry(open, b); err != nil {
		return fmt.Errorf("toteguardd: open %s: %w", what, err)
	}
	return nil
}
