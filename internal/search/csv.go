package search

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"qdt/internal/backtest"
)

// csvHeader is the column order of the results file.
var csvHeader = []string{
	"data_type", "factor_type", "interval", "window_size",
	"step_ms", "forward_steps", "market_type", "symbol",
	"ic", "records", "status", "error_message",
}

// WriteCSV writes results to path, replacing any previous file. IC and
// records columns are left empty for rows that did not succeed.
func WriteCSV(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, r := range results {
		var ic, records string
		if r.Status == backtest.StatusSuccess {
			ic = strconv.FormatFloat(r.IC, 'f', -1, 64)
			records = strconv.FormatInt(r.Records, 10)
		}
		row := []string{
			r.DataType,
			r.FactorType,
			r.Interval,
			strconv.Itoa(r.WindowSize),
			strconv.Itoa(r.StepMS),
			strconv.Itoa(r.ForwardSteps),
			r.MarketType,
			r.Symbol,
			ic,
			records,
			r.Status,
			r.ErrMsg,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// finished filters results down to tasks that have completed, keeping
// task order. Pending slots have an empty status.
func finished(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Status != "" {
			out = append(out, r)
		}
	}
	return out
}
