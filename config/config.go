// package config is the structured configuration data model consumed by
// cmd/toteguardd to wire the core packages together. Nothing in this
// package parses a config file on its own; cmd/toteguardd owns the TOML
// decoding and hands a populated Config to the supervisor.
package config

import "toteguard.dev/iopin"

// CurrentMode selects how the motor current reading is derived from the
// ADC channel.
type CurrentMode string

const (
	// CurrentModeTransducer: the sensor outputs a DC voltage proportional
	// to RMS current (0..Vref).
	CurrentModeTransducer CurrentMode = "transducer"
	// CurrentModeCTBias: the sensor outputs an AC signal centered at a
	// mid-bias voltage; RMS is computed by the core from repeated samples.
	CurrentModeCTBias CurrentMode = "ct_bias"
)

// Pins maps every signal the supervisor touches to a host GPIO line.
type Pins struct {
	DoorClosed  iopin.PinDescriptor `toml:"door_closed"`
	FlapOpen    iopin.PinDescriptor `toml:"flap_open"`
	Mains       iopin.PinDescriptor `toml:"mains"`
	MotorEnable iopin.PinDescriptor `toml:"motor_enable"`
	SolenoidFwd iopin.PinDescriptor `toml:"solenoid_fwd"`
	SolenoidRev iopin.PinDescriptor `toml:"solenoid_rev"`

	TotePresentTrig iopin.PinDescriptor `toml:"tote_present_trig"`
	TotePresentEcho iopin.PinDescriptor `toml:"tote_present_echo"`
	ToteLevelTrig   iopin.PinDescriptor `toml:"tote_level_trig"`
	ToteLevelEcho   iopin.PinDescriptor `toml:"tote_level_echo"`
}

// ADC configures the single shared ADS1115 device and its channel
// assignment. Enabled=false skips all ADC reads; any Ch* pointer left nil
// disables that particular reading.
type ADC struct {
	Enabled bool   `toml:"enabled"`
	I2CDev  string `toml:"i2c_dev"`
	Addr    uint16 `toml:"addr"`

	ChMotorCurrent *int `toml:"ch_motor_current"`
	ChV5           *int `toml:"ch_v5"`
	ChV33          *int `toml:"ch_v33"`

	ScaleV5  float64 `toml:"scale_v5"`
	ScaleV33 float64 `toml:"scale_v33"`

	CurrentMode  CurrentMode `toml:"current_mode"`
	CurrentScale float64     `toml:"current_scale"`
	CtBiasVmid   float64     `toml:"ct_bias_vmid"`
}

// Thresholds holds every tunable comparison the sensing and safety layers
// apply to raw readings.
type Thresholds struct {
	TotePresentMaxCm float64 `toml:"tote_present_max_cm"`
	ToteLevelFullCm  float64 `toml:"tote_level_full_cm"`
	ToteLevelEmptyCm float64 `toml:"tote_level_empty_cm"`

	MainsRequired bool `toml:"mains_required"`

	V5Min  float64 `toml:"v5_min"`
	V33Min float64 `toml:"v33_min"`

	MotorOvercurrentA float64 `toml:"motor_overcurrent_a"`
	MotorMaxRunS      float64 `toml:"motor_max_run_s"`

	DebounceMs         int     `toml:"debounce_ms"`
	UltrasonicTimeoutS float64 `toml:"ultrasonic_timeout_s"`
}

// Solenoid configures the double-acting lock coil timing.
type Solenoid struct {
	DeadtimeMs int `toml:"deadtime_ms"`
	MaxOnS     int `toml:"max_on_s"`
	// PulseHoldMs is how long the supervisor waits after issuing a
	// lock/unlock pulse before believing the mechanism has reached target,
	// modeling the source's brief pulse-then-hint behavior (see §9).
	PulseHoldMs int `toml:"pulse_hold_ms"`
}

// Paths holds filesystem locations the core writes to.
type Paths struct {
	CycleLogCSV string `toml:"cycle_log_csv"`
}

// Config is the full, structured configuration of one appliance instance.
type Config struct {
	Pins       Pins       `toml:"pins"`
	ADC        ADC        `toml:"adc"`
	Thresholds Thresholds `toml:"thresholds"`
	Solenoid   Solenoid   `toml:"solenoid"`
	Paths      Paths      `toml:"paths"`
}

// Default returns a Config populated with the thresholds and timings called
// out as defaults in the design (20ms debounce, 25ms ultrasonic timeout,
// 50ms dead-time, 100ms pulse hold). Pins, ADC routing, and the
// appliance-specific thresholds (overcurrent amps, max run seconds, tote
// distances) have no sane default and must be supplied by the caller.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			MainsRequired:      true,
			DebounceMs:         20,
			UltrasonicTimeoutS: 0.025,
		},
		Solenoid: Solenoid{
			DeadtimeMs:  50,
			PulseHoldMs: 100,
		},
		ADC: ADC{
			CurrentMode: CurrentModeTransducer,
		},
	}
}
