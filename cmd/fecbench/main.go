//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/fecbench/pkg/config"
	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/inject"
	"github.com/ja7ad/fecbench/pkg/sampler"
	"github.com/ja7ad/fecbench/pkg/system/proc"
	"github.com/ja7ad/fecbench/pkg/toolchain"
	"github.com/ja7ad/fecbench/pkg/trial"
)

var (
	configPath string
	parityHelp bool
	logLevel   string
	logJSON    bool
)

func main() {
	cfg := config.Default()

	root := &cobra.Command{
		Use:   "fecbench",
		Short: "Hamming codec fault-injection and cost benchmark",
		Long: `fecbench builds an external Hamming encoder/decoder pair, feeds it random
payloads, corrupts the encoded medium with a simulated storage fault model
and reports residual bit errors together with the time, CPU and estimated
energy each codec call cost, averaged over repeated trials.

Fault models (--strategy):
  none     no corruption
  random   --flips-size distinct bits flipped uniformly over the file
  wnoise   every bit flipped independently with --flip-prob
  scratch  a --scratch-length byte window, runs of --width bytes inverted
           with probability --intensity

Energy is a C·V²·f·t estimate, not a measurement.

Examples:
  fecbench --parity-bits 3 --repeat 10 --strategy random --flips-size 20
  fecbench --build make --hamm-api ../codec --strategy wnoise --flip-prob 0.001 --json out.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if parityHelp {
				for _, line := range toolchain.ParityTable() {
					fmt.Println(line)
				}
				os.Exit(1)
			}
			if configPath != "" {
				if err := loadConfig(cmd.Flags(), configPath, &cfg); err != nil {
					return err
				}
			}
			log, err := newLogger(os.Stderr, logLevel, logJSON)
			if err != nil {
				return err
			}
			id := uuid.NewString()
			log = log.With("run_id", id)
			slog.SetDefault(log)

			return run(cmd.Context(), cfg, id, os.Stdout, log)
		},
	}

	f := root.Flags()
	f.StringVar(&configPath, "config", "", "YAML file with option defaults (flags win)")
	f.BoolVar(&parityHelp, "parity-help", false, "print parity-bits to Hamming code mapping and exit")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of text")

	// build
	f.StringVar(&cfg.GCC, "gcc", cfg.GCC, "available GCC version")
	f.StringVar(&cfg.HammAPI, "hamm-api", cfg.HammAPI, "path to hamming API (or Makefile directory with --build make)")
	f.StringVar(&cfg.Build, "build", cfg.Build, "build kind: direct (compile sources) or make")
	f.BoolVar(&cfg.NoBuild, "no-build", cfg.NoBuild, "use existing tool binaries")

	// tools
	f.StringVar(&cfg.Coder, "coder", cfg.Coder, "coder tool, built from <coder>.c")
	f.StringVar(&cfg.Decoder, "decoder", cfg.Decoder, "decoder tool, built from <decoder>.c")
	f.StringVar(&cfg.Generator, "file-gen", cfg.Generator, "generator tool, built from <file-gen>.c")
	f.IntVar(&cfg.Repeat, "repeat", cfg.Repeat, "repeat count")

	// coder and decoder
	f.Var(&cfg.FileSize, "file-size", "source file size (512, 4K, 1MiB)")
	f.IntVar(&cfg.ParityBits, "parity-bits", cfg.ParityBits, "parity bits count, see --parity-help")
	f.StringVar(&cfg.SrcFile, "src-file", cfg.SrcFile, "source file (with data) path that will be generated")
	f.StringVar(&cfg.CodedFile, "coded-file", cfg.CodedFile, "encoded source file name")
	f.StringVar(&cfg.DecodedFile, "decoded-file", cfg.DecodedFile, "decoded encoded source file name")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for payloads and faults (0 = unpinned)")

	// bit flip emulation
	f.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "none, random, wnoise or scratch")
	f.IntVar(&cfg.ScratchLength, "scratch-length", cfg.ScratchLength, "scratch window length in bytes")
	f.Float64Var(&cfg.FlipProb, "flip-prob", cfg.FlipProb, "white noise per-bit flip probability [0..1]")
	f.IntVar(&cfg.Width, "width", cfg.Width, "scratch run width in bytes")
	f.Float64Var(&cfg.Intensity, "intensity", cfg.Intensity, "scratch per-run flip probability [0..1]")
	f.IntVar(&cfg.FlipsSize, "flips-size", cfg.FlipsSize, "random strategy flip count")

	// sensors and model
	f.Float64Var(&cfg.Energy.Capacitance, "capacitance", cfg.Energy.Capacitance, "effective CPU capacitance in Farads")
	f.Float64Var(&cfg.Energy.DefaultVoltage, "voltage", cfg.Energy.DefaultVoltage, "CPU voltage used when no hardware reading exists")
	f.StringVar(&cfg.VoltCmd, "volt-cmd", cfg.VoltCmd, "voltage probe command (vcgencmd measure_volts core)")
	f.StringVar(&cfg.ProcRoot, "proc-root", cfg.ProcRoot, "procfs mount point")
	f.StringVar(&cfg.SysRoot, "sys-root", cfg.SysRoot, "sysfs mount point")

	// outputs
	f.StringVar(&cfg.CSVPath, "csv", "", "write per-trial rows to CSV file")
	f.StringVar(&cfg.JSONPath, "json", "", "write per-trial rows and summary to JSON file")
	f.BoolVar(&cfg.KeepArtifacts, "keep-artifacts", false, "keep built binaries and trial files")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

// loadConfig applies the YAML file to cfg, then re-applies every flag given
// on the command line so explicit flags take precedence over the file.
func loadConfig(fs *pflag.FlagSet, path string, cfg *config.Config) error {
	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = f.Value.String() })

	if err := config.Load(path, cfg); err != nil {
		return err
	}
	for name, val := range changed {
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("config: reapply --%s: %w", name, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func run(ctx context.Context, cfg config.Config, runID string, out io.Writer, log *slog.Logger) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	strategy, err := cfg.InjectionStrategy()
	if err != nil {
		return err
	}
	n, k, err := toolchain.CodeShape(cfg.ParityBits)
	if err != nil {
		return err
	}

	runner := &toolchain.Runner{Log: log}
	tools := &toolchain.Tools{
		Generator: cfg.Generator,
		Encoder:   cfg.Coder,
		Decoder:   cfg.Decoder,
		Runner:    runner,
	}

	if !cfg.KeepArtifacts {
		defer func() {
			var artifacts []string
			if !cfg.NoBuild {
				artifacts = append(artifacts, tools.Binaries()...)
			}
			artifacts = append(artifacts, cfg.SrcFile, cfg.CodedFile, cfg.DecodedFile)
			if cerr := toolchain.Remove(log, artifacts...); cerr != nil && err == nil {
				err = fmt.Errorf("cleanup: %w", cerr)
			}
		}()
	}

	if !cfg.NoBuild {
		builder, err := toolchain.NewBuilder(cfg.Build, cfg.GCC, cfg.HammAPI, []string{cfg.Coder, cfg.Decoder, cfg.Generator})
		if err != nil {
			return err
		}
		if err := builder.Check(); err != nil {
			return err
		}
		if err := toolchain.Remove(log, tools.Binaries()...); err != nil {
			return fmt.Errorf("remove stale tools: %w", err)
		}
		if err := builder.Build(ctx, runner); err != nil {
			return err
		}
	}

	model := consumption.NewModel(&cfg.Energy)
	smp := sampler.New(&sampler.Host{
		ProcRoot: cfg.ProcRoot,
		SysRoot:  cfg.SysRoot,
		VoltCmd:  cfg.VoltCmd,
	}, model, log)

	var fillRng, faultRng *rand.Rand
	if cfg.Seed != 0 {
		fillRng = rand.New(rand.NewPCG(cfg.Seed, 1))
		faultRng = rand.New(rand.NewPCG(cfg.Seed, 2))
	}

	orch := trial.New(trial.Config{
		Repeat:     cfg.Repeat,
		Size:       cfg.FileSize,
		ParityBits: cfg.ParityBits,
		Paths: trial.Paths{
			Source:  cfg.SrcFile,
			Coded:   cfg.CodedFile,
			Decoded: cfg.DecodedFile,
		},
		Strategy: strategy,
	}, tools, smp, inject.New(faultRng), fillRng, log)

	rep, err := newReporter(cfg.CSVPath, cfg.JSONPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rep.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	orch.OnTrial = rep.Trial

	log.Info("starting trials",
		"code", fmt.Sprintf("Hamming(%d,%d)", n, k),
		"repeat", cfg.Repeat,
		"size", cfg.FileSize.Humanized(),
		"strategy", strategy.Name(),
		"clk_tck", proc.ClockTicks(),
	)

	agg, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted")
		}
		return err
	}

	summary := summary{
		RunID:    runID,
		Code:     fmt.Sprintf("Hamming(%d,%d)", n, k),
		Strategy: strategy.Name(),
		Size:     cfg.FileSize,
		Agg:      agg,
	}
	rep.Summary(summary)
	printStatistics(out, summary)
	return nil
}
