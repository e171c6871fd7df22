package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Runner executes external commands synchronously.
// Output of the child is forwarded to Stdout/Stderr (the process's own by default).
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

// Run starts tool with args and waits for it to exit. Any non-zero exit or
// start failure is reported as ErrToolFailed. There is no retry.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) error {
	r.logger().Info("launch", "tool", tool, "args", args)

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with status %d: %w", ErrToolFailed, tool, exitErr.ExitCode(), err)
		}
		return fmt.Errorf("%w: %s: %w", ErrToolFailed, tool, err)
	}
	return nil
}

// Remove deletes every existing path, logging each removal. Missing paths are skipped.
func Remove(log *slog.Logger, paths ...string) error {
	if log == nil {
		log = slog.Default()
	}
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		log.Info("cleanup", "remove", p)
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
