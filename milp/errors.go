package milp

import "errors"

var (
	// ErrNilGraph indicates Build was called without a graph.
	ErrNilGraph = errors.New("milp: nil graph")

	// ErrBadOptions indicates an invalid Options value.
	ErrBadOptions = errors.New("milp: invalid options")

	// ErrNotOptimal indicates the engine returned a non-optimal verdict.
	ErrNotOptimal = errors.New("milp: solve not optimal")

	// ErrNilSolver indicates Solve was called without an engine.
	ErrNilSolver = errors.New("milp: nil solver")

	// ErrFlowSize indicates a flow vector whose length does not match the graph.
	ErrFlowSize = errors.New("milp: flow vector size mismatch")
)
