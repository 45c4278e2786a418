package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/katalvlaran/ammroute/exchange"
)

// CSV column names.
const (
	ColExchange  = "Exchange"
	ColCurrency1 = "Currency1"
	ColCurrency2 = "Currency2"
	ColStock1    = "Stock1"
	ColStock2    = "Stock2"
)

var csvColumns = []string{ColExchange, ColCurrency1, ColCurrency2, ColStock1, ColStock2}

// PoolID is the exchange identifier given to the pool of pair c1/c2 at venue.
func PoolID(venue string, c1, c2 exchange.Currency) string {
	return fmt.Sprintf("%s:%s/%s", venue, c1, c2)
}

// ReadCSV decodes pair pools. Columns are located by header name and may
// come in any order; extra columns are ignored.
// Stage 1 (Validate): header.
// Stage 2 (Execute): one exchange per row, decimals parsed exactly and
// converted once to float64.
// Complexity: O(rows).
func ReadCSV(r io.Reader) ([]exchange.Exchange, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	// 1) Header
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrBadRecord)
		}
		return nil, fmt.Errorf("%w: header: %v", ErrBadRecord, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(csvColumns))
	for i, name := range csvColumns {
		at, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadRecord, name)
		}
		idx[i] = at
	}

	// 2) Rows
	var exs []exchange.Exchange
	seen := make(map[string]int)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}
		field := func(c int) string {
			if idx[c] >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx[c]])
		}

		venue := field(0)
		c1, c2 := exchange.Currency(field(1)), exchange.Currency(field(2))
		if venue == "" || c1 == "" || c2 == "" {
			return nil, fmt.Errorf("%w: line %d: empty exchange or currency", ErrBadRecord, line)
		}
		if c1 == c2 {
			return nil, fmt.Errorf("%w: line %d: pair %s/%s", ErrBadRecord, line, c1, c2)
		}
		s1, err := positive(field(3))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrBadRecord, line, ColStock1, err)
		}
		s2, err := positive(field(4))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrBadRecord, line, ColStock2, err)
		}

		lo, hi := c1, c2
		if hi < lo {
			lo, hi = hi, lo
		}
		key := PoolID(venue, lo, hi)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: line %d repeats line %d (%s)", ErrDuplicatePool, line, prev, key)
		}
		seen[key] = line

		exs = append(exs, exchange.Exchange{
			ID:       PoolID(venue, c1, c2),
			Reserves: map[exchange.Currency]float64{c1: s1, c2: s2},
		})
	}
	if len(exs) == 0 {
		return nil, fmt.Errorf("%w: no pools", ErrBadRecord)
	}

	return exs, nil
}

func positive(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("stock %s must be > 0", d)
	}
	f, _ := d.Float64()

	return f, nil
}
