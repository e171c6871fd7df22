package consumption

import "github.com/ja7ad/fecbench/pkg/system/util"

// Config holds the dynamic-power model coefficients.
// Units:
//   - Capacitance: Farads (effective switched capacitance)
//   - DefaultVoltage: Volts, used when no hardware reading is available
type Config struct {
	Capacitance    float64 `yaml:"capacitance"`
	DefaultVoltage float64 `yaml:"voltage"`
}

// _defaultConfig returns a Config pre-filled with the coefficients the
// original shell harness used.
func _defaultConfig() *Config {
	return &Config{
		Capacitance:    1e-9, // F
		DefaultVoltage: 1.2,  // V
	}
}

// Measurement is the cost of one external tool invocation. It is built once
// by the sampler and never mutated.
//
// CPUSec is the harness's own user+system time across the call and is what
// the energy estimate uses. ChildCPUSec is the reaped child's user+system
// time. CPUTicks is the OS-wide tick delta, so it includes unrelated load.
// TempDeltaC is post minus pre and may be negative.
type Measurement struct {
	ElapsedSec  float64 `json:"elapsed_sec"`
	CPUSec      float64 `json:"cpu_sec"`
	ChildCPUSec float64 `json:"child_cpu_sec"`
	CPUTicks    uint64  `json:"cpu_ticks"`
	TempDeltaC  float64 `json:"temp_delta_c"`
	FreqGHz     float64 `json:"freq_ghz"`
	VoltageV    float64 `json:"voltage_v"`
	EnergyJ     float64 `json:"energy_j"`
}

// Trial is the outcome of one generate/encode/inject/decode/diff cycle.
type Trial struct {
	Index        int         `json:"trial"`
	Encode       Measurement `json:"encode"`
	Decode       Measurement `json:"decode"`
	InjectedBits uint64      `json:"injected_bits"`
	BitDiff      uint64      `json:"bit_diff"`
}

// Aggregate holds per-metric means over all trials. Integer counters are
// floor-divided; everything else is a real mean.
type Aggregate struct {
	Trials       int         `json:"trials"`
	Encode       Measurement `json:"encode"`
	Decode       Measurement `json:"decode"`
	InjectedBits uint64      `json:"injected_bits"`
	BitDiff      uint64      `json:"bit_diff"`

	// TotalBitDiff is the un-averaged sum, kept for the error percentage.
	TotalBitDiff uint64 `json:"total_bit_diff"`
}

// PercentError returns the share of payload bits that differ after
// decoding, over all trials, for a payload of size bytes.
func (a Aggregate) PercentError(size uint64) float64 {
	bits := float64(size) * 8 * float64(a.Trials)
	return util.SafeDiv(float64(a.TotalBitDiff), bits) * 100
}
