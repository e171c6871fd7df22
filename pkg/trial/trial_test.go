package trial

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/inject"
	"github.com/ja7ad/fecbench/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repetitionCodec is Hamming(3,1) applied bitwise: every payload byte is
// written three times and decoded by per-bit majority vote. It records the
// order in which steps were invoked.
type repetitionCodec struct {
	calls   []string
	failOn  string
	genSize types.Bytes
}

func (c *repetitionCodec) Generate(_ context.Context, size types.Bytes, out string) error {
	c.calls = append(c.calls, "generate")
	if c.failOn == "generate" {
		return assert.AnError
	}
	c.genSize = size
	// The real generator writes zeros; the orchestrator must overwrite them.
	return os.WriteFile(out, make([]byte, int(size)), 0o644)
}

func (c *repetitionCodec) Encode(_ context.Context, pb int, in, out string) error {
	c.calls = append(c.calls, "encode")
	if c.failOn == "encode" {
		return assert.AnError
	}
	src, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	coded := make([]byte, 0, 3*len(src))
	for _, b := range src {
		coded = append(coded, b, b, b)
	}
	return os.WriteFile(out, coded, 0o644)
}

func (c *repetitionCodec) Decode(_ context.Context, pb int, in, out string) error {
	c.calls = append(c.calls, "decode")
	if c.failOn == "decode" {
		return assert.AnError
	}
	coded, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	dec := make([]byte, len(coded)/3)
	for i := range dec {
		a, b, x := coded[3*i], coded[3*i+1], coded[3*i+2]
		dec[i] = (a & b) | (a & x) | (b & x)
	}
	return os.WriteFile(out, dec, 0o644)
}

// scriptedMeter returns one scripted measurement per call.
type scriptedMeter struct {
	codec *repetitionCodec
	out   []consumption.Measurement
	n     int
}

func (m *scriptedMeter) Measure(ctx context.Context, fn func(context.Context) error) (consumption.Measurement, error) {
	if m.codec != nil {
		m.codec.calls = append(m.codec.calls, "measure")
	}
	if err := fn(ctx); err != nil {
		return consumption.Measurement{}, err
	}
	var r consumption.Measurement
	if len(m.out) > 0 {
		r = m.out[m.n%len(m.out)]
	}
	m.n++
	return r, nil
}

func paths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		Source:  filepath.Join(dir, "image.img"),
		Coded:   filepath.Join(dir, "image.hamm"),
		Decoded: filepath.Join(dir, "decoded.img"),
	}
}

func newOrch(t *testing.T, cfg Config, codec Codec, meter Meter) *Orchestrator {
	t.Helper()
	return New(cfg, codec, meter,
		inject.New(rand.New(rand.NewPCG(11, 12))),
		rand.New(rand.NewPCG(13, 14)),
		nil)
}

func TestRun_NoInjectionRoundTrips(t *testing.T) {
	codec := &repetitionCodec{}
	p := paths(t)
	cfg := Config{Repeat: 1, Size: 512, ParityBits: 2, Paths: p, Strategy: inject.None{}}

	var results []Result
	o := newOrch(t, cfg, codec, &scriptedMeter{codec: codec})
	o.OnTrial = func(r Result) error {
		results = append(results, r)
		return nil
	}

	agg, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Trials)
	assert.Zero(t, agg.BitDiff)
	assert.Zero(t, agg.PercentError(512))

	assert.Equal(t, []string{"generate", "measure", "encode", "measure", "decode"}, codec.calls)
	assert.Equal(t, types.Bytes(512), codec.genSize)

	src, err := os.ReadFile(p.Source)
	require.NoError(t, err)
	assert.Len(t, src, 512)
	assert.NotEqual(t, make([]byte, 512), src, "payload must be filled with random bytes")

	require.Len(t, results, 1)
	assert.Equal(t, inject.NameNone, results[0].Injection.Strategy)
}

func TestRun_RandomFlipsBoundedResidual(t *testing.T) {
	const count = 10
	codec := &repetitionCodec{}
	cfg := Config{Repeat: 5, Size: 512, ParityBits: 2, Paths: paths(t), Strategy: inject.Uniform{Count: count}}

	var results []Result
	o := newOrch(t, cfg, codec, &scriptedMeter{})
	o.OnTrial = func(r Result) error {
		results = append(results, r)
		return nil
	}

	agg, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, uint64(count), r.InjectedBits)
		// A data bit is lost only when two of its three copies flip.
		assert.LessOrEqual(t, r.BitDiff, uint64(count/2))
	}
	assert.Equal(t, uint64(count), agg.InjectedBits)
	t.Logf("mean residual %d bits, %.6f%%", agg.BitDiff, agg.PercentError(512))
}

func TestRun_AggregateIsMeanOfTrials(t *testing.T) {
	meter := &scriptedMeter{out: []consumption.Measurement{
		{ElapsedSec: 0.1, CPUSec: 0.01, CPUTicks: 5, TempDeltaC: 1, EnergyJ: 0.2},
		{ElapsedSec: 0.3, CPUSec: 0.03, CPUTicks: 8, TempDeltaC: -1, EnergyJ: 0.4},
		{ElapsedSec: 0.2, CPUSec: 0.02, CPUTicks: 6, TempDeltaC: 0, EnergyJ: 0.3},
	}}
	cfg := Config{Repeat: 3, Size: 64, ParityBits: 2, Paths: paths(t), Strategy: inject.None{}}

	var acc consumption.Accumulator
	o := newOrch(t, cfg, &repetitionCodec{}, meter)
	o.OnTrial = func(r Result) error {
		acc.Add(r.Trial)
		return nil
	}
	agg, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, acc.Averages(), agg)

	// measurements rotate over enc/dec calls: enc gets m0,m2,m1 and dec m1,m0,m2
	assert.Equal(t, uint64(19/3), agg.Encode.CPUTicks)
	assert.Equal(t, uint64(19/3), agg.Decode.CPUTicks)
	assert.InDelta(t, 0.2, agg.Encode.ElapsedSec, 1e-12)
	assert.InDelta(t, 0.3, agg.Decode.EnergyJ, 1e-12)
}

func TestRun_FailureAbortsWithoutAggregate(t *testing.T) {
	for _, step := range []string{"generate", "encode", "decode"} {
		t.Run(step, func(t *testing.T) {
			codec := &repetitionCodec{failOn: step}
			cfg := Config{Repeat: 3, Size: 32, ParityBits: 2, Paths: paths(t)}
			trials := 0
			o := newOrch(t, cfg, codec, &scriptedMeter{})
			o.OnTrial = func(Result) error { trials++; return nil }

			agg, err := o.Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, assert.AnError)
			assert.Contains(t, err.Error(), step)
			assert.Equal(t, consumption.Aggregate{}, agg)
			assert.Zero(t, trials)
			assert.Equal(t, step, codec.calls[len(codec.calls)-1], "nothing runs after the failing step")
		})
	}
}

func TestRun_ReporterErrorAborts(t *testing.T) {
	cfg := Config{Repeat: 2, Size: 16, ParityBits: 2, Paths: paths(t)}
	o := newOrch(t, cfg, &repetitionCodec{}, &scriptedMeter{})
	o.OnTrial = func(Result) error { return assert.AnError }
	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRun_BadRepeat(t *testing.T) {
	o := newOrch(t, Config{Repeat: 0, Paths: paths(t)}, &repetitionCodec{}, &scriptedMeter{})
	_, err := o.Run(context.Background())
	require.Error(t, err)
}
