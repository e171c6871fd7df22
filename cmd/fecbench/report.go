//go:build linux

package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ja7ad/fecbench/pkg/consumption"
	"github.com/ja7ad/fecbench/pkg/system/util"
	"github.com/ja7ad/fecbench/pkg/trial"
	"github.com/ja7ad/fecbench/pkg/types"
)

type summary struct {
	RunID    string                `json:"run_id"`
	Code     string                `json:"code"`
	Strategy string                `json:"strategy"`
	Size     types.Bytes           `json:"size_bytes"`
	Agg      consumption.Aggregate `json:"average"`
}

var csvHeader = []string{
	"trial", "strategy", "injected_bits", "bit_diff",
	"enc_elapsed_sec", "enc_cpu_sec", "enc_child_cpu_sec", "enc_cpu_ticks", "enc_temp_delta_c", "enc_freq_ghz", "enc_energy_j",
	"dec_elapsed_sec", "dec_cpu_sec", "dec_child_cpu_sec", "dec_cpu_ticks", "dec_temp_delta_c", "dec_freq_ghz", "dec_energy_j",
}

// reporter streams per-trial rows to CSV and collects them for the final
// JSON document. Either output may be disabled.
type reporter struct {
	csvF  *os.File
	csvW  *csv.Writer
	jsonF *os.File

	rows    []trial.Result
	summary *summary
}

func newReporter(csvPath, jsonPath string) (*reporter, error) {
	r := &reporter{}
	if csvPath != "" {
		f, err := create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		r.csvF, r.csvW = f, csv.NewWriter(f)
		if err := r.csvW.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: %w", err)
		}
	}
	if jsonPath != "" {
		f, err := create(jsonPath)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("json: %w", err)
		}
		r.jsonF = f
	}
	return r, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func measurementCols(m consumption.Measurement) []string {
	return []string{
		util.FmtFloat(m.ElapsedSec), util.FmtFloat(m.CPUSec), util.FmtFloat(m.ChildCPUSec),
		strconv.FormatUint(m.CPUTicks, 10),
		util.FmtFloat(m.TempDeltaC), util.FmtFloat(m.FreqGHz), util.FmtFloat(m.EnergyJ),
	}
}

// Trial records one finished trial.
func (r *reporter) Trial(res trial.Result) error {
	if r.jsonF != nil {
		r.rows = append(r.rows, res)
	}
	if r.csvW == nil {
		return nil
	}
	rec := []string{
		strconv.Itoa(res.Index), res.Injection.Strategy,
		strconv.FormatUint(res.InjectedBits, 10), strconv.FormatUint(res.BitDiff, 10),
	}
	rec = append(rec, measurementCols(res.Encode)...)
	rec = append(rec, measurementCols(res.Decode)...)
	if err := r.csvW.Write(rec); err != nil {
		return err
	}
	r.csvW.Flush()
	return r.csvW.Error()
}

// Summary attaches the aggregate; the JSON document is only written when
// the run got this far.
func (r *reporter) Summary(s summary) { r.summary = &s }

func (r *reporter) Close() error {
	var errs []error
	if r.csvW != nil {
		r.csvW.Flush()
		errs = append(errs, r.csvW.Error())
	}
	if r.csvF != nil {
		errs = append(errs, r.csvF.Close())
	}
	if r.jsonF != nil {
		if r.summary != nil {
			doc := struct {
				summary
				Trials []trial.Result `json:"trials"`
			}{*r.summary, r.rows}
			enc := json.NewEncoder(r.jsonF)
			enc.SetIndent("", "  ")
			errs = append(errs, enc.Encode(doc))
		}
		errs = append(errs, r.jsonF.Close())
	}
	return errors.Join(errs...)
}

func printStatistics(w io.Writer, s summary) {
	a := s.Agg
	line := strings.Repeat("=", 50)

	fmt.Fprintln(w, line)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "%s\t| %s\n", "Statistic", "Value")
	fmt.Fprintf(tw, "%s\t| %s\n", "Run", s.RunID)
	fmt.Fprintf(tw, "%s\t| %s\n", "Code", s.Code)
	fmt.Fprintf(tw, "%s\t| %s\n", "Strategy", s.Strategy)
	fmt.Fprintf(tw, "%s\t| %d\n", "Trials", a.Trials)
	fmt.Fprintf(tw, "%s\t| %d (%s)\n", "Original file size (b)", uint64(s.Size), s.Size.Humanized())
	fmt.Fprintf(tw, "%s\t| %d\n", "Total bits", s.Size.Bits())
	fmt.Fprintf(tw, "%s\t| %d\n", "Injected bit flips", a.InjectedBits)
	fmt.Fprintf(tw, "%s\t| %d\n", "Bit differences", a.BitDiff)
	fmt.Fprintf(tw, "%s\t| %.6f%%\n", "Percentage errors", a.PercentError(uint64(s.Size)))
	phase(tw, "Encoding", a.Encode)
	phase(tw, "Decoding", a.Decode)
	tw.Flush()
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "energy is a C*V^2*f*t estimate, not a measurement")
}

func phase(tw *tabwriter.Writer, name string, m consumption.Measurement) {
	fmt.Fprintf(tw, "%s time (s)\t| %.6f\n", name, m.ElapsedSec)
	fmt.Fprintf(tw, "%s CPU time (s)\t| %.6f\n", name, m.CPUSec)
	fmt.Fprintf(tw, "%s child CPU (s)\t| %.6f\n", name, m.ChildCPUSec)
	fmt.Fprintf(tw, "%s CPU ticks\t| %d\n", name, m.CPUTicks)
	fmt.Fprintf(tw, "%s temp delta (C)\t| %.3f\n", name, m.TempDeltaC)
	fmt.Fprintf(tw, "%s energy (J)\t| %.6e\n", name, m.EnergyJ)
}
