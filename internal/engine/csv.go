package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"intrasim/types"
)

// WriteLedgerCSVFile writes the trade ledger to a CSV file at the given path.
func WriteLedgerCSVFile(path string, trades []types.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger file: %w", err)
	}
	defer f.Close()

	return WriteLedgerCSV(f, trades)
}

// WriteLedgerCSV writes the trade ledger to any io.Writer as CSV, one row
// per closed trade ordered by exit time. The row set is bit-exact for a
// given ledger: downstream consumers diff it to verify reproducibility.
func WriteLedgerCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"roll_id",
		"strategy_id",
		"symbol",
		"timeframe",
		"entry_time",
		"exit_time",
		"entry_price",
		"exit_price",
		"quantity",
		"fees",
		"cumulative_capital_after_trade",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	ordered := append([]types.Trade(nil), trades...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	for _, t := range ordered {
		record := []string{
			t.RollID,
			t.StrategyID,
			t.Symbol,
			string(t.Timeframe),
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Quantity.String(),
			t.Fees.String(),
			t.CapitalAfter.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
