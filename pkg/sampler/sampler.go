// Package sampler brackets one blocking tool invocation with before/after
// resource snapshots and derives a consumption.Measurement from them.
//
// All readings are racy with respect to unrelated system load. Tick counts
// and temperature are OS-wide and CPU time is the harness's own, so a
// Measurement is a noisy proxy for the child's cost, not an attribution.
package sampler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/system/util"
)

// Sentinel readings for unavailable sensors.
const (
	NoTemperature = -1.0
	NoFrequency   = -1.0
)

// Snapshot is the sensor state at one instant.
type Snapshot struct {
	At       time.Time
	CPU      time.Duration
	CPUOK    bool
	ChildCPU time.Duration
	ChildOK  bool
	Ticks    uint64
	TicksOK  bool
	TempC    float64
	TempOK   bool
}

// Sampler measures calls using a Sensors backend and an energy model.
type Sampler struct {
	sensors Sensors
	model   *consumption.Model
	log     *slog.Logger
	now     func() time.Time
}

// New returns a Sampler. A nil model uses the default coefficients and a nil
// logger uses slog.Default().
func New(s Sensors, m *consumption.Model, log *slog.Logger) *Sampler {
	if m == nil {
		m = consumption.NewModel(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{sensors: s, model: m, log: log, now: time.Now}
}

// Snapshot reads every sensor once. Failures become sentinels and are
// logged at debug level.
func (s *Sampler) Snapshot() Snapshot {
	snap := Snapshot{At: s.now(), TempC: NoTemperature}

	if d, err := s.sensors.SelfCPU(); err == nil {
		snap.CPU, snap.CPUOK = d, true
	} else {
		s.log.Debug("sensor unavailable", "sensor", "self_cpu", "err", err)
	}
	if d, err := s.sensors.ChildrenCPU(); err == nil {
		snap.ChildCPU, snap.ChildOK = d, true
	} else {
		s.log.Debug("sensor unavailable", "sensor", "children_cpu", "err", err)
	}
	if v, err := s.sensors.CPUTicks(); err == nil {
		snap.Ticks, snap.TicksOK = v, true
	} else {
		s.log.Debug("sensor unavailable", "sensor", "cpu_ticks", "err", err)
	}
	if v, err := s.sensors.Temperature(); err == nil {
		snap.TempC, snap.TempOK = v, true
	} else {
		s.log.Debug("sensor unavailable", "sensor", "temperature", "err", err)
	}
	return snap
}

// Measure runs fn between two snapshots. The after-snapshot is taken as soon
// as fn returns. If fn fails its error is returned and no measurement is
// produced.
func (s *Sampler) Measure(ctx context.Context, fn func(context.Context) error) (consumption.Measurement, error) {
	pre := s.Snapshot()
	if err := fn(ctx); err != nil {
		return consumption.Measurement{}, err
	}
	post := s.Snapshot()

	freq, err := s.sensors.Frequency()
	if err != nil {
		s.log.Debug("sensor unavailable", "sensor", "frequency", "err", err)
		freq = NoFrequency
	}
	volts, err := s.sensors.Voltage(ctx)
	if err != nil {
		s.log.Debug("sensor unavailable", "sensor", "voltage", "err", err)
		volts = 0
	}
	return s.Derive(pre, post, freq, volts), nil
}

// Derive computes a Measurement from two snapshots plus the post-call
// frequency (GHz) and voltage (V) readings. A non-positive voltage selects
// the model's default.
func (s *Sampler) Derive(pre, post Snapshot, freqGHz, volts float64) consumption.Measurement {
	m := consumption.Measurement{
		ElapsedSec: post.At.Sub(pre.At).Seconds(),
		FreqGHz:    freqGHz,
		VoltageV:   s.model.Voltage(volts),
	}
	if pre.CPUOK && post.CPUOK {
		m.CPUSec = (post.CPU - pre.CPU).Seconds()
	}
	if pre.ChildOK && post.ChildOK {
		m.ChildCPUSec = (post.ChildCPU - pre.ChildCPU).Seconds()
	}
	if pre.TicksOK && post.TicksOK {
		m.CPUTicks = util.DeltaU64(post.Ticks, pre.Ticks)
	}
	if pre.TempOK && post.TempOK {
		m.TempDeltaC = post.TempC - pre.TempC
	}
	m.EnergyJ = s.model.Energy(m.CPUSec, freqGHz, volts)
	return m
}
