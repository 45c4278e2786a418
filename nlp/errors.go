package nlp

import "errors"

var (
	// ErrNilGraph indicates Build was called without a graph.
	ErrNilGraph = errors.New("nlp: nil graph")

	// ErrBadOptions indicates an invalid Options value.
	ErrBadOptions = errors.New("nlp: invalid options")

	// ErrStartSize indicates a starting point of the wrong length.
	ErrStartSize = errors.New("nlp: start vector size mismatch")

	// ErrNoSuccessfulStart indicates that every local solve failed.
	ErrNoSuccessfulStart = errors.New("nlp: no successful start")

	// ErrNilSolver indicates Run was called without a solver.
	ErrNilSolver = errors.New("nlp: nil solver")
)
