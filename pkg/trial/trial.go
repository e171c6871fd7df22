// Package trial runs repeated generate → fill → encode → inject → decode →
// diff cycles against an external codec and aggregates their cost.
//
// Trials run strictly one after another: each step depends on the previous
// one's output file, and the resource brackets around encode and decode
// would be confounded by any concurrent work.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/ja7ad/fecbench/pkg/bitdiff"
	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/inject"
	"github.com/ja7ad/fecbench/pkg/types"
)

// Codec is the external generator/encoder/decoder under test.
type Codec interface {
	Generate(ctx context.Context, size types.Bytes, out string) error
	Encode(ctx context.Context, parityBits int, in, out string) error
	Decode(ctx context.Context, parityBits int, in, out string) error
}

// Meter brackets a blocking call with resource sampling.
type Meter interface {
	Measure(ctx context.Context, fn func(context.Context) error) (consumption.Measurement, error)
}

// Paths are the three files a trial owns exclusively while it runs.
type Paths struct {
	Source  string
	Coded   string
	Decoded string
}

// Config describes one run.
type Config struct {
	Repeat     int
	Size       types.Bytes
	ParityBits int
	Paths      Paths
	Strategy   inject.Strategy
}

// Result is one finished trial with the injection that was applied.
type Result struct {
	consumption.Trial
	Injection inject.Report `json:"injection"`
}

// Orchestrator owns the trial loop.
type Orchestrator struct {
	cfg      Config
	codec    Codec
	meter    Meter
	injector *inject.Injector
	rng      *rand.Rand
	log      *slog.Logger

	// OnTrial, when set, is called after every completed trial. Returning an
	// error aborts the run.
	OnTrial func(Result) error
}

// New wires an Orchestrator. rng drives the payload fill; nil picks a
// randomly seeded source. A nil Strategy means no injection.
func New(cfg Config, codec Codec, meter Meter, injector *inject.Injector, rng *rand.Rand, log *slog.Logger) *Orchestrator {
	if cfg.Strategy == nil {
		cfg.Strategy = inject.None{}
	}
	if injector == nil {
		injector = inject.New(nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, codec: codec, meter: meter, injector: injector, rng: rng, log: log}
}

// Run executes cfg.Repeat trials and returns their averages. The first
// failing step aborts the run and no aggregate is returned.
func (o *Orchestrator) Run(ctx context.Context) (consumption.Aggregate, error) {
	if o.cfg.Repeat < 1 {
		return consumption.Aggregate{}, fmt.Errorf("trial: repeat %d < 1", o.cfg.Repeat)
	}

	var acc consumption.Accumulator
	for i := 0; i < o.cfg.Repeat; i++ {
		res, err := o.runOne(ctx, i)
		if err != nil {
			return consumption.Aggregate{}, fmt.Errorf("trial %d: %w", i, err)
		}
		acc.Add(res.Trial)

		o.log.Info("trial done",
			"trial", i,
			"strategy", res.Injection.Strategy,
			"flipped_bits", res.Injection.FlippedBits,
			"bit_diff", res.BitDiff,
			"encode_sec", res.Encode.ElapsedSec,
			"decode_sec", res.Decode.ElapsedSec,
		)
		if o.OnTrial != nil {
			if err := o.OnTrial(res); err != nil {
				return consumption.Aggregate{}, fmt.Errorf("trial %d: report: %w", i, err)
			}
		}
	}
	return acc.Averages(), nil
}

func (o *Orchestrator) runOne(ctx context.Context, i int) (Result, error) {
	p := o.cfg.Paths
	res := Result{Trial: consumption.Trial{Index: i}}

	if err := o.codec.Generate(ctx, o.cfg.Size, p.Source); err != nil {
		return res, fmt.Errorf("generate: %w", err)
	}

	o.log.Debug("filling payload", "path", p.Source, "size", o.cfg.Size.String())
	if err := o.fill(p.Source); err != nil {
		return res, fmt.Errorf("fill: %w", err)
	}

	enc, err := o.meter.Measure(ctx, func(ctx context.Context) error {
		return o.codec.Encode(ctx, o.cfg.ParityBits, p.Source, p.Coded)
	})
	if err != nil {
		return res, fmt.Errorf("encode: %w", err)
	}
	res.Encode = enc

	rep, err := o.injector.File(p.Coded, o.cfg.Strategy)
	if err != nil {
		return res, fmt.Errorf("inject: %w", err)
	}
	res.Injection = rep
	res.InjectedBits = uint64(rep.FlippedBits)

	dec, err := o.meter.Measure(ctx, func(ctx context.Context) error {
		return o.codec.Decode(ctx, o.cfg.ParityBits, p.Coded, p.Decoded)
	})
	if err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}
	res.Decode = dec

	diff, err := bitdiff.Files(p.Source, p.Decoded)
	if err != nil {
		return res, fmt.Errorf("diff: %w", err)
	}
	res.BitDiff = diff
	return res, nil
}

// fill overwrites path with Size freshly drawn random bytes, the trial's
// ground-truth payload.
func (o *Orchestrator) fill(path string) error {
	buf := make([]byte, int(o.cfg.Size))
	for i := 0; i < len(buf); i += 8 {
		v := o.rng.Uint64()
		for j := 0; j < 8 && i+j < len(buf); j++ {
			buf[i+j] = byte(v >> (8 * j))
		}
	}
	return os.WriteFile(path, buf, 0o644)
}
