package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var reportHeader = []string{
	"case", "splits", "t0", "g1", "g2",
	"status", "objective", "delivered", "g1_fee", "g2_fee", "objective_plus_g1",
	"vars", "setup_seconds", "solve_seconds", "error",
}

// WriteCSV writes one row per outcome, in order, under a fixed header.
// Unset point fields are left empty.
func WriteCSV(w io.Writer, outs []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("sweep: write header: %w", err)
	}
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, o := range outs {
		p, v := o.Point, o.Value
		row := []string{o.Case, "", "", "", "", v.Status, "", "", "", "", "", "", "", "", ""}
		if p.Splits > 0 {
			row[1] = strconv.Itoa(p.Splits)
		}
		if p.T0 > 0 {
			row[2] = num(p.T0)
		}
		if p.HasG1 {
			row[3] = num(p.G1)
		}
		if p.HasG2 {
			row[4] = num(p.G2)
		}
		if o.Err != nil {
			row[14] = o.Err.Error()
		} else {
			row[6], row[7] = num(v.Objective), num(v.Delivered)
			row[8], row[9] = num(v.G1Fee), num(v.G2Fee)
			row[10] = num(v.ObjectivePlusG1())
		}
		if v.Vars > 0 {
			row[11] = strconv.Itoa(v.Vars)
		}
		row[12], row[13] = num(v.Setup.Seconds()), num(v.Solve.Seconds())
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("sweep: write %s: %w", o.Case, err)
		}
	}
	cw.Flush()

	return cw.Error()
}
