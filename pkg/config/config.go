// Package config holds the benchmark's configuration document: defaults,
// YAML loading and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/inject"
	"github.com/ja7ad/fecbench/pkg/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config mirrors the command-line flags; YAML keys use the flag names with
// dashes replaced by underscores.
type Config struct {
	// build
	GCC     string `yaml:"gcc" validate:"required_if=Build direct"`
	HammAPI string `yaml:"hamm_api" validate:"required"`
	Build   string `yaml:"build" validate:"oneof=direct make"`
	NoBuild bool   `yaml:"no_build"`

	// tools
	Coder     string `yaml:"coder" validate:"required"`
	Decoder   string `yaml:"decoder" validate:"required"`
	Generator string `yaml:"file_gen" validate:"required"`

	// trials
	Repeat      int         `yaml:"repeat" validate:"gte=1"`
	FileSize    types.Bytes `yaml:"file_size" validate:"gte=1"`
	ParityBits  int         `yaml:"parity_bits" validate:"gte=2,lte=9"`
	SrcFile     string      `yaml:"src_file" validate:"required"`
	CodedFile   string      `yaml:"coded_file" validate:"required"`
	DecodedFile string      `yaml:"decoded_file" validate:"required"`
	Seed        uint64      `yaml:"seed"`

	// fault model
	Strategy      string  `yaml:"strategy" validate:"oneof=none random wnoise scratch"`
	FlipsSize     int     `yaml:"flips_size" validate:"gte=0"`
	FlipProb      float64 `yaml:"flip_prob" validate:"gte=0,lte=1"`
	ScratchLength int     `yaml:"scratch_length" validate:"gte=1"`
	Width         int     `yaml:"width" validate:"gte=1"`
	Intensity     float64 `yaml:"intensity" validate:"gte=0,lte=1"`

	// sensors and energy model
	Energy   consumption.Config `yaml:"energy"`
	VoltCmd  string             `yaml:"volt_cmd"`
	ProcRoot string             `yaml:"proc_root"`
	SysRoot  string             `yaml:"sys_root"`

	// outputs
	CSVPath       string `yaml:"csv"`
	JSONPath      string `yaml:"json"`
	KeepArtifacts bool   `yaml:"keep_artifacts"`
}

// Default returns the configuration the original harness shipped with.
func Default() Config {
	return Config{
		GCC:           "gcc-14",
		HammAPI:       "..",
		Build:         "direct",
		Coder:         "tools/file2hamm",
		Decoder:       "tools/hamm2file",
		Generator:     "tools/gen_file",
		Repeat:        1,
		FileSize:      512,
		ParityBits:    2,
		SrcFile:       "image.img",
		CodedFile:     "image.hamm",
		DecodedFile:   "decoded.img",
		Strategy:      inject.NameNone,
		FlipsSize:     10,
		FlipProb:      0.5,
		ScratchLength: 1024,
		Width:         1,
		Intensity:     0.7,
		Energy:        consumption.Config{Capacitance: 1e-9, DefaultVoltage: 1.2},
		VoltCmd:       "vcgencmd",
		ProcRoot:      "/proc",
		SysRoot:       "/sys",
	}
}

// Load reads a YAML document into cfg. Keys absent from the file keep the
// values already in cfg.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints and reports all
// violations at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (%v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Params returns the strategy knobs in the form inject.Parse expects.
func (c *Config) Params() inject.Params {
	return inject.Params{
		FlipCount:     c.FlipsSize,
		FlipProb:      c.FlipProb,
		ScratchLength: c.ScratchLength,
		Width:         c.Width,
		Intensity:     c.Intensity,
	}
}

// InjectionStrategy resolves the configured fault model.
func (c *Config) InjectionStrategy() (inject.Strategy, error) {
	return inject.Parse(c.Strategy, c.Params())
}
