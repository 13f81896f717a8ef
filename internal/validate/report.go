package validate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteReport prints the aggregate plus the per-fold degradation table.
func (r *Report) WriteReport(w io.Writer) {
	fmt.Fprintln(w, "===== Walk-Forward Report =====")
	fmt.Fprintf(w, "Folds:             %d\n", len(r.Folds))
	fmt.Fprintf(w, "Degenerate Folds:  %d\n", r.DegenerateFolds)
	fmt.Fprintf(w, "Mean Test Sharpe:  %.4f\n", r.MeanTestSharpe)
	fmt.Fprintf(w, "Std Test Sharpe:   %.4f\n", r.StdTestSharpe)
	fmt.Fprintln(w, "\nfold  train_sharpe  test_sharpe  degradation  degenerate")
	for _, f := range r.Folds {
		fmt.Fprintf(w, "%4d  %12.4f  %11.4f  %11.4f  %t\n",
			f.Index, f.TrainMetrics.Sharpe, f.TestMetrics.Sharpe, f.Degradation, f.Degenerate)
	}
	fmt.Fprintln(w, "===============================")
}

// WriteCSV writes one row per fold.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"fold", "train_start", "train_end", "test_start", "test_end",
		"train_sharpe", "test_sharpe", "degradation", "degenerate",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, f := range r.Folds {
		record := []string{
			strconv.Itoa(f.Index),
			strconv.Itoa(f.TrainStart),
			strconv.Itoa(f.TrainEnd),
			strconv.Itoa(f.TestStart),
			strconv.Itoa(f.TestEnd),
			formatFloat(f.TrainMetrics.Sharpe),
			formatFloat(f.TestMetrics.Sharpe),
			formatFloat(f.Degradation),
			strconv.FormatBool(f.Degenerate),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport prints the resampled Sharpe distribution.
func (r *MCReport) WriteReport(w io.Writer) {
	fmt.Fprintln(w, "===== Monte Carlo Report =====")
	fmt.Fprintf(w, "Iterations:        %d\n", len(r.Iterations))
	fmt.Fprintf(w, "Degenerate:        %d\n", r.Degenerate)
	fmt.Fprintf(w, "Observed Sharpe:   %.4f\n", r.ObservedSharpe)
	fmt.Fprintf(w, "Mean Sharpe:       %.4f\n", r.MeanSharpe)
	fmt.Fprintf(w, "Std Sharpe:        %.4f\n", r.StdSharpe)
	fmt.Fprintf(w, "P05/P25/P50:       %.4f / %.4f / %.4f\n", r.P05, r.P25, r.P50)
	fmt.Fprintf(w, "P75/P95:           %.4f / %.4f\n", r.P75, r.P95)
	fmt.Fprintf(w, "Frac >= Target:    %.4f\n", r.FracAboveTarget)
	fmt.Fprintln(w, "==============================")
}

// WriteCSV writes one row per iteration.
func (r *MCReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"iteration", "sharpe", "final_capital", "degenerate"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, it := range r.Iterations {
		record := []string{
			strconv.Itoa(it.Index),
			formatFloat(it.Sharpe),
			it.FinalCapital.String(),
			strconv.FormatBool(it.Degenerate),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
