package model

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// termsPerLine keeps LP rows readable and under reader line limits.
const termsPerLine = 6

// lpNames maps every variable to a unique LP-safe identifier.
// Characters outside [A-Za-z0-9_(),.] become '_'; collisions get an id suffix.
func lpNames(vars []Var) []string {
	names := make([]string, len(vars))
	used := make(map[string]struct{}, len(vars))
	for i, v := range vars {
		n := sanitize(v.Name)
		if _, dup := used[n]; dup {
			n = fmt.Sprintf("%s_%d", n, v.ID)
		}
		used[n] = struct{}{}
		names[i] = n
	}

	return names
}

func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '(', r == ')', r == ',', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	s := sb.String()
	if s == "" || !isLetter(s[0]) || s[0] == 'e' || s[0] == 'E' {
		s = "v_" + s
	}

	return s
}

func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

// LPName returns the identifier used for id in LP, MST and SOL files.
func (m *Model) LPName(id VarID) string { return m.lpNames[id] }

func num(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// lpWriter carries the first write error so the emit helpers stay terse.
type lpWriter struct {
	w   *bufio.Writer
	err error
}

func (w *lpWriter) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// expr writes the terms of e; quadScale doubles objective bilinear coefficients
// to honour the "[ ... ] / 2" objective convention.
func (w *lpWriter) expr(m *Model, e Expr, quadScale float64) {
	n := 0
	sep := func() {
		if n > 0 && n%termsPerLine == 0 {
			w.printf("\n  ")
		}
		n++
	}
	signed := func(c float64) string {
		if c < 0 {
			return "- " + num(-c)
		}
		return "+ " + num(c)
	}

	for _, t := range e.Linear {
		sep()
		w.printf(" %s %s", signed(t.Coef), m.lpNames[t.Var])
	}
	if len(e.Quad) > 0 {
		sep()
		w.printf(" + [")
		for _, q := range e.Quad {
			sep()
			w.printf(" %s %s * %s", signed(q.Coef*quadScale), m.lpNames[q.A], m.lpNames[q.B])
		}
		w.printf(" ]")
		if quadScale != 1 {
			w.printf(" / %s", num(quadScale))
		}
	}
	if n == 0 && len(m.vars) > 0 {
		// LP rows need at least one term.
		w.printf(" 0 %s", m.lpNames[0])
	}
}

// WriteLP writes m in CPLEX LP format.
// Stage 1: objective section (constant folded in when non-zero).
// Stage 2: rows, with expression constants moved to the right-hand side.
// Stage 3: bounds for every non-default variable, then the Binaries section.
// Complexity: O(nonzeros + vars).
func (m *Model) WriteLP(out io.Writer) error {
	w := &lpWriter{w: bufio.NewWriter(out)}

	w.printf("\\ Model: %s\n", m.name)
	w.printf("%s\n obj:", m.obj.Sense)
	w.expr(m, Expr{Linear: m.obj.Expr.Linear, Quad: m.obj.Expr.Quad}, 2)
	if c := m.obj.Expr.Constant; c != 0 {
		w.printf(" + %s", num(c))
	}
	w.printf("\nSubject To\n")

	cnames := lpNames(constraintVars(m.cons))
	for i, c := range m.cons {
		w.printf(" %s:", cnames[i])
		w.expr(m, Expr{Linear: c.Expr.Linear, Quad: c.Expr.Quad}, 1)
		w.printf(" %s %s\n", c.Rel, num(c.RHS-c.Expr.Constant))
	}

	w.printf("Bounds\n")
	var binaries []string
	for _, v := range m.vars {
		name := m.lpNames[v.ID]
		if v.Kind == Binary {
			binaries = append(binaries, name)
			if v.Fixed() {
				w.printf(" %s = %s\n", name, num(v.Lower))
			}
			continue
		}
		switch {
		case v.Fixed():
			w.printf(" %s = %s\n", name, num(v.Lower))
		case math.IsInf(v.Lower, -1) && math.IsInf(v.Upper, 1):
			w.printf(" %s free\n", name)
		case v.Lower == 0 && math.IsInf(v.Upper, 1):
			// default bounds
		default:
			w.printf(" %s <= %s <= %s\n", num(v.Lower), name, num(v.Upper))
		}
	}
	if len(binaries) > 0 {
		w.printf("Binaries\n")
		for i, name := range binaries {
			if i > 0 && i%termsPerLine == 0 {
				w.printf("\n")
			}
			w.printf(" %s", name)
		}
		w.printf("\n")
	}
	w.printf("End\n")

	if w.err != nil {
		return fmt.Errorf("model: WriteLP: %w", w.err)
	}

	return w.w.Flush()
}

// constraintVars lets lpNames sanitize constraint names with the same rules.
func constraintVars(cons []Constraint) []Var {
	vs := make([]Var, len(cons))
	for i, c := range cons {
		vs[i] = Var{ID: VarID(i), Name: c.Name}
	}

	return vs
}

// WriteMST writes x as a MIP start ("name value" per line).
func (m *Model) WriteMST(out io.Writer, x []float64) error {
	if len(x) != len(m.vars) {
		return fmt.Errorf("%w: got %d, want %d", ErrAssignmentSize, len(x), len(m.vars))
	}
	w := &lpWriter{w: bufio.NewWriter(out)}
	w.printf("# MIP start\n")
	for i, v := range x {
		w.printf("%s %s\n", m.lpNames[i], num(v))
	}
	if w.err != nil {
		return fmt.Errorf("model: WriteMST: %w", w.err)
	}

	return w.w.Flush()
}

// SolutionFile is the content of a parsed .sol file.
type SolutionFile struct {
	Objective    float64
	HasObjective bool
	Values       []float64 // indexed by VarID; unlisted variables are 0
	Listed       int       // number of variable lines read
}

// ParseSolution reads a solution file of "name value" lines.
// The optional "# Objective value = v" header sets Objective.
// Unknown names fail with ErrUnknownVariable.
func (m *Model) ParseSolution(r io.Reader) (*SolutionFile, error) {
	index := make(map[string]VarID, len(m.lpNames))
	for i, n := range m.lpNames {
		index[n] = VarID(i)
	}

	sol := &SolutionFile{Values: make([]float64, len(m.vars))}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if _, after, ok := strings.Cut(text, "Objective value ="); ok {
				v, err := strconv.ParseFloat(strings.TrimSpace(after), 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedSolution, line, err)
				}
				sol.Objective, sol.HasObjective = v, true
			}
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedSolution, line, text)
		}
		id, ok := index[fields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedSolution, line, err)
		}
		sol.Values[id] = v
		sol.Listed++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("model: ParseSolution: %w", err)
	}

	return sol, nil
}
