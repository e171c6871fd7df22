package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Build kinds accepted by NewBuilder.
const (
	KindDirect = "direct"
	KindMake   = "make"
)

// Builder produces the codec tool binaries.
type Builder interface {
	// Check verifies that everything the build needs is present. It runs
	// before any trial so a missing descriptor fails fast.
	Check() error
	Build(ctx context.Context, r *Runner) error
}

// DirectCompile compiles each target from <target>.c plus every
// <APIDir>/src/*.c with include path <APIDir>/include.
type DirectCompile struct {
	Compiler string
	APIDir   string
	Targets  []string
}

// DescriptorBuild runs `<Tool> -C <Dir>` against the Makefile in Dir.
type DescriptorBuild struct {
	Tool string
	Dir  string
}

// NewBuilder selects the build variant by kind.
func NewBuilder(kind, compiler, dir string, targets []string) (Builder, error) {
	switch kind {
	case "", KindDirect:
		return &DirectCompile{Compiler: compiler, APIDir: dir, Targets: targets}, nil
	case KindMake:
		return &DescriptorBuild{Tool: "make", Dir: dir}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuild, kind)
	}
}

func (d *DirectCompile) Check() error {
	if fi, err := os.Stat(d.APIDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: api directory %s", ErrMissingDescriptor, d.APIDir)
	}
	for _, t := range d.Targets {
		if _, err := os.Stat(t + ".c"); err != nil {
			return fmt.Errorf("%w: source %s.c", ErrMissingDescriptor, t)
		}
	}
	return nil
}

func (d *DirectCompile) Build(ctx context.Context, r *Runner) error {
	if err := d.Check(); err != nil {
		return err
	}
	sources, err := filepath.Glob(filepath.Join(d.APIDir, "src", "*.c"))
	if err != nil {
		return fmt.Errorf("toolchain: glob sources: %w", err)
	}
	for _, t := range d.Targets {
		args := []string{"-I" + filepath.Join(d.APIDir, "include"), "-O2", "-Wall", "-o", t}
		args = append(args, sources...)
		args = append(args, t+".c")
		r.logger().Info("build", "source", t+".c", "out", t)
		if err := r.Run(ctx, d.Compiler, args...); err != nil {
			return err
		}
	}
	return nil
}

var makefiles = []string{"GNUmakefile", "makefile", "Makefile"}

func (d *DescriptorBuild) Check() error {
	if fi, err := os.Stat(d.Dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: build directory %s", ErrMissingDescriptor, d.Dir)
	}
	for _, name := range makefiles {
		if _, err := os.Stat(filepath.Join(d.Dir, name)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no Makefile in %s", ErrMissingDescriptor, d.Dir)
}

func (d *DescriptorBuild) Build(ctx context.Context, r *Runner) error {
	if err := d.Check(); err != nil {
		return err
	}
	tool := d.Tool
	if tool == "" {
		tool = "make"
	}
	return r.Run(ctx, tool, "-C", d.Dir)
}
