package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/ammroute/exchange"
)

// Record is the YAML shape of one exchange.
type Record struct {
	Name   string                        `yaml:"nameExchange"`
	Stocks map[string]float64            `yaml:"stocks"`
	B1     map[string]map[string]float64 `yaml:"B1,omitempty"`
	B2     map[string]map[string]float64 `yaml:"B2,omitempty"`
}

// Format names an input encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// DetectFormat returns f when set, otherwise infers it from the extension of path.
func DetectFormat(path string, f Format) (Format, error) {
	if f != "" {
		switch Format(strings.ToLower(string(f))) {
		case FormatYAML, "yml":
			return FormatYAML, nil
		case FormatCSV:
			return FormatCSV, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	}

	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, path)
}

// Load reads the exchanges stored at path. An empty format is inferred from
// the file extension.
func Load(path string, f Format) ([]exchange.Exchange, error) {
	f, err := DetectFormat(path, f)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open: %w", err)
	}
	defer file.Close()

	if f == FormatCSV {
		return ReadCSV(file)
	}

	return ReadYAML(file)
}

// ReadYAML decodes a list of exchange records. Unknown keys are rejected.
func ReadYAML(r io.Reader) ([]exchange.Exchange, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var recs []Record
	if err := dec.Decode(&recs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrBadRecord)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}

	exs := make([]exchange.Exchange, 0, len(recs))
	for i, rec := range recs {
		ex, err := rec.Exchange()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		exs = append(exs, ex)
	}

	return exs, nil
}

// Exchange converts the record. Numeric validation is left to exchange.New.
func (r Record) Exchange() (exchange.Exchange, error) {
	if r.Name == "" {
		return exchange.Exchange{}, fmt.Errorf("%w: missing nameExchange", ErrBadRecord)
	}
	if len(r.Stocks) == 0 {
		return exchange.Exchange{}, fmt.Errorf("%w: %s has no stocks", ErrBadRecord, r.Name)
	}
	ex := exchange.Exchange{
		ID:           r.Name,
		Reserves:     make(map[exchange.Currency]float64, len(r.Stocks)),
		Fixed:        feeTable(r.B1),
		Proportional: feeTable(r.B2),
	}
	for c, s := range r.Stocks {
		ex.Reserves[exchange.Currency(c)] = s
	}

	return ex, nil
}

func feeTable(nested map[string]map[string]float64) map[exchange.Pair]float64 {
	if len(nested) == 0 {
		return nil
	}
	out := make(map[exchange.Pair]float64)
	for from, row := range nested {
		for to, v := range row {
			out[exchange.Pair{From: exchange.Currency(from), To: exchange.Currency(to)}] = v
		}
	}

	return out
}

func nestedTable(table map[exchange.Pair]float64) map[string]map[string]float64 {
	if len(table) == 0 {
		return nil
	}
	out := make(map[string]map[string]float64)
	for p, v := range table {
		row, ok := out[string(p.From)]
		if !ok {
			row = make(map[string]float64)
			out[string(p.From)] = row
		}
		row[string(p.To)] = v
	}

	return out
}

// NewRecord is the inverse of Record.Exchange.
func NewRecord(ex exchange.Exchange) Record {
	rec := Record{
		Name:   ex.ID,
		Stocks: make(map[string]float64, len(ex.Reserves)),
		B1:     nestedTable(ex.Fixed),
		B2:     nestedTable(ex.Proportional),
	}
	for c, s := range ex.Reserves {
		rec.Stocks[string(c)] = s
	}

	return rec
}

// WriteYAML encodes exs as a list of records, keys sorted.
func WriteYAML(w io.Writer, exs []exchange.Exchange) error {
	recs := make([]Record, 0, len(exs))
	for _, ex := range exs {
		recs = append(recs, NewRecord(ex))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("ingest: encode: %w", err)
	}

	return enc.Close()
}

// Dump writes exs as YAML to path, replacing any existing file.
func Dump(path string, exs []exchange.Exchange) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ingest: create: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	return WriteYAML(file, exs)
}
