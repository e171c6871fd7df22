package consumption

// Model estimates dynamic CPU energy with P = C·V²·f.
//
// This is a coarse approximation for comparing runs on the same host. It
// ignores static power, the split between cores, and frequency changes
// during the call. Never treat its output as a measured value.
type Model struct {
	cfg *Config
}

// NewModel creates a model with the given config.
// Fields > 0 in cfg override defaults; zero or negative fields are treated
// as unset.
func NewModel(cfg *Config) *Model {
	base := _defaultConfig()
	if cfg == nil {
		return &Model{cfg: base}
	}

	merged := *base
	if cfg.Capacitance > 0 {
		merged.Capacitance = cfg.Capacitance
	}
	if cfg.DefaultVoltage > 0 {
		merged.DefaultVoltage = cfg.DefaultVoltage
	}
	return &Model{cfg: &merged}
}

// Config returns a copy of the effective coefficients.
func (m *Model) Config() Config { return *m.cfg }

// Voltage returns v when it is a usable reading, otherwise the default.
func (m *Model) Voltage(v float64) float64 {
	if v > 0 {
		return v
	}
	return m.cfg.DefaultVoltage
}

// Energy returns C·V²·f·t in Joules for cpuSec seconds of CPU time at
// freqGHz. A non-positive frequency means no reading was available and
// yields 0 so the missing sensor only taints this metric.
func (m *Model) Energy(cpuSec, freqGHz, volts float64) float64 {
	if freqGHz <= 0 || cpuSec <= 0 {
		return 0
	}
	v := m.Voltage(volts)
	return m.cfg.Capacitance * v * v * (freqGHz * 1e9) * cpuSec
}

// Accumulator keeps running sums over trials. It is threaded through the
// trial loop and finalized once with Averages.
type Accumulator struct {
	count        int
	enc, dec     sums
	injectedBits uint64
	bitDiff      uint64
}

type sums struct {
	elapsed, cpu, childCPU float64
	ticks                  uint64
	temp, freq, volt, nrg  float64
}

func (s *sums) add(m Measurement) {
	s.elapsed += m.ElapsedSec
	s.cpu += m.CPUSec
	s.childCPU += m.ChildCPUSec
	s.ticks += m.CPUTicks
	s.temp += m.TempDeltaC
	s.freq += m.FreqGHz
	s.volt += m.VoltageV
	s.nrg += m.EnergyJ
}

func (s *sums) mean(n int) Measurement {
	f := float64(n)
	return Measurement{
		ElapsedSec:  s.elapsed / f,
		CPUSec:      s.cpu / f,
		ChildCPUSec: s.childCPU / f,
		CPUTicks:    s.ticks / uint64(n),
		TempDeltaC:  s.temp / f,
		FreqGHz:     s.freq / f,
		VoltageV:    s.volt / f,
		EnergyJ:     s.nrg / f,
	}
}

// Add folds one trial into the running sums.
func (a *Accumulator) Add(t Trial) {
	a.count++
	a.enc.add(t.Encode)
	a.dec.add(t.Decode)
	a.injectedBits += t.InjectedBits
	a.bitDiff += t.BitDiff
}

// Count returns the number of trials added so far.
func (a *Accumulator) Count() int { return a.count }

// Averages returns the per-metric means over all added trials.
func (a *Accumulator) Averages() Aggregate {
	if a.count == 0 {
		return Aggregate{}
	}
	n := uint64(a.count)
	return Aggregate{
		Trials:       a.count,
		Encode:       a.enc.mean(a.count),
		Decode:       a.dec.mean(a.count),
		InjectedBits: a.injectedBits / n,
		BitDiff:      a.bitDiff / n,
		TotalBitDiff: a.bitDiff,
	}
}
