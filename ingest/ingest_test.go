package ingest_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/ingest"
)

const sampleYAML = `
- nameExchange: K1
  stocks: {o: 10, c1: 20, d: 15}
  B1:
    o: {c1: 0.5}
  B2:
    c1: {d: 0.01}
- nameExchange: K2
  stocks:
    c1: 5
    d: 8
`

func TestReadYAML(t *testing.T) {
	exs, err := ingest.ReadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, exs, 2)

	k1 := exs[0]
	require.Equal(t, "K1", k1.ID)
	require.Equal(t, map[exchange.Currency]float64{"o": 10, "c1": 20, "d": 15}, k1.Reserves)
	require.Equal(t, map[exchange.Pair]float64{{From: "o", To: "c1"}: 0.5}, k1.Fixed)
	require.Equal(t, map[exchange.Pair]float64{{From: "c1", To: "d"}: 0.01}, k1.Proportional)
	require.Nil(t, exs[1].Fixed)

	g, err := exchange.New(exs, exchange.WithSource("o"), exchange.WithTarget("d"), exchange.WithQuantity(1))
	require.NoError(t, err)
	fee, err := g.FixedFee("K1", "o", "c1")
	require.NoError(t, err)
	require.Equal(t, 0.5, fee)
}

func TestReadYAMLRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"no name":       "- stocks: {a: 1}\n",
		"no stocks":     "- nameExchange: K1\n",
		"unknown field": "- nameExchange: K1\n  stocks: {a: 1}\n  B3: {}\n",
		"not a list":    "nameExchange: K1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingest.ReadYAML(strings.NewReader(doc))
			require.ErrorIs(t, err, ingest.ErrBadRecord)
		})
	}
}

func TestGenerateDumpRead(t *testing.T) {
	exs, err := ingest.Generate(5, 3, ingest.WithSeed(9), ingest.WithZeroFees())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ingest.WriteYAML(&buf, exs))
	require.Contains(t, buf.String(), "nameExchange: K1")

	back, err := ingest.ReadYAML(&buf)
	require.NoError(t, err)
	require.Equal(t, exs, back)
}

func TestGenerate(t *testing.T) {
	exs, err := ingest.Generate(6, 4, ingest.WithSeed(3))
	require.NoError(t, err)
	require.Len(t, exs, 4)
	require.Equal(t, "K4", exs[3].ID)
	for _, ex := range exs {
		require.Len(t, ex.Reserves, 6)
		require.Nil(t, ex.Fixed)
		for c, r := range ex.Reserves {
			require.GreaterOrEqual(t, r, ingest.DefaultReserveLow, c)
			require.LessOrEqual(t, r, ingest.DefaultReserveHigh, c)
		}
	}
	require.Contains(t, exs[0].Reserves, exchange.Currency("c4"))
	require.NotContains(t, exs[0].Reserves, exchange.Currency("c5"))

	again, err := ingest.Generate(6, 4, ingest.WithSeed(3))
	require.NoError(t, err)
	require.Equal(t, exs, again)

	other, err := ingest.Generate(6, 4, ingest.WithSeed(4))
	require.NoError(t, err)
	require.NotEqual(t, exs, other)

	zero, err := ingest.Generate(6, 4, ingest.WithSeed(0))
	require.NoError(t, err)
	one, err := ingest.Generate(6, 4, ingest.WithSeed(1))
	require.NoError(t, err)
	require.Equal(t, one, zero)

	g, err := exchange.New(exs, exchange.WithSource(ingest.GenSource), exchange.WithTarget(ingest.GenTarget), exchange.WithQuantity(1))
	require.NoError(t, err)
	require.Len(t, g.MidCurrencies(), 4)
}

func TestGenerateRejects(t *testing.T) {
	for _, tc := range []struct {
		n, k int
		opts []ingest.GenOption
	}{
		{n: 1, k: 1},
		{n: 2, k: 0},
		{n: 3, k: 1, opts: []ingest.GenOption{ingest.WithReserveRange(0, 1)}},
		{n: 3, k: 1, opts: []ingest.GenOption{ingest.WithReserveRange(5, 2)}},
	} {
		_, err := ingest.Generate(tc.n, tc.k, tc.opts...)
		require.ErrorIs(t, err, ingest.ErrBadGenerator)
	}
}

const sampleCSV = `Exchange,Currency1,Currency2,Stock1,Stock2
Uniswap,USDC,ETH,1000.50,0.4
Uniswap, ETH ,UNI,2,300
Sushi,USDC,ETH,500,0.25
`

func TestReadCSV(t *testing.T) {
	exs, err := ingest.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, exs, 3)
	require.Equal(t, "Uniswap:USDC/ETH", exs[0].ID)
	require.Equal(t, map[exchange.Currency]float64{"USDC": 1000.5, "ETH": 0.4}, exs[0].Reserves)
	require.Equal(t, "Uniswap:ETH/UNI", exs[1].ID)

	g, err := exchange.New(exs, exchange.WithSource("USDC"), exchange.WithTarget("UNI"), exchange.WithQuantity(10))
	require.NoError(t, err)
	require.True(t, g.HasPool("Sushi:USDC/ETH", "ETH", "USDC"))
	require.False(t, g.HasPool("Sushi:USDC/ETH", "ETH", "UNI"))
	require.InDelta(t, 1500.5, g.TotalReserve("USDC"), 1e-12)
}

func TestReadCSVColumnOrder(t *testing.T) {
	doc := "Stock2,Stock1,Currency2,Currency1,Exchange,Note\n4,3,b,a,X,ignored\n"
	exs, err := ingest.ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []exchange.Exchange{{
		ID:       "X:a/b",
		Reserves: map[exchange.Currency]float64{"a": 3, "b": 4},
	}}, exs)
}

func TestReadCSVRejects(t *testing.T) {
	const head = "Exchange,Currency1,Currency2,Stock1,Stock2\n"
	cases := map[string]struct {
		doc  string
		want error
	}{
		"empty":          {"", ingest.ErrBadRecord},
		"header only":    {head, ingest.ErrBadRecord},
		"missing column": {"Exchange,Currency1,Currency2,Stock1\nX,a,b,1\n", ingest.ErrBadRecord},
		"zero stock":     {head + "X,a,b,0,1\n", ingest.ErrBadRecord},
		"negative stock": {head + "X,a,b,1,-2\n", ingest.ErrBadRecord},
		"bad number":     {head + "X,a,b,1e,2\n", ingest.ErrBadRecord},
		"same currency":  {head + "X,a,a,1,2\n", ingest.ErrBadRecord},
		"empty venue":    {head + ",a,b,1,2\n", ingest.ErrBadRecord},
		"duplicate pair": {head + "X,a,b,1,2\nX,b,a,3,4\n", ingest.ErrDuplicatePool},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingest.ReadCSV(strings.NewReader(tc.doc))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "net.yml")
	csvPath := filepath.Join(dir, "pools.csv")
	txt := filepath.Join(dir, "pools.txt")
	require.NoError(t, os.WriteFile(yml, []byte(sampleYAML), 0o600))
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o600))
	require.NoError(t, os.WriteFile(txt, []byte(sampleCSV), 0o600))

	exs, err := ingest.Load(yml, "")
	require.NoError(t, err)
	require.Len(t, exs, 2)

	exs, err = ingest.Load(csvPath, "")
	require.NoError(t, err)
	require.Len(t, exs, 3)

	_, err = ingest.Load(txt, "")
	require.ErrorIs(t, err, ingest.ErrUnknownFormat)
	exs, err = ingest.Load(txt, ingest.FormatCSV)
	require.NoError(t, err)
	require.Len(t, exs, 3)

	_, err = ingest.Load(txt, "xml")
	require.ErrorIs(t, err, ingest.ErrUnknownFormat)
	_, err = ingest.Load(filepath.Join(dir, "missing.yaml"), "")
	require.ErrorIs(t, err, os.ErrNotExist)

	out := filepath.Join(dir, "dump.yaml")
	require.NoError(t, ingest.Dump(out, exs))
	back, err := ingest.Load(out, "")
	require.NoError(t, err)
	require.Equal(t, exs, back)
}
