package model

import "errors"

var (
	// ErrInvalidBounds indicates lower > upper or a NaN bound.
	ErrInvalidBounds = errors.New("model: invalid variable bounds")

	// ErrDuplicateName indicates two variables or two constraints sharing a name.
	ErrDuplicateName = errors.New("model: duplicate name")

	// ErrEmptyName indicates a variable or constraint declared without a name.
	ErrEmptyName = errors.New("model: empty name")

	// ErrUnknownVariable indicates an expression or solution referencing a
	// variable the model does not declare.
	ErrUnknownVariable = errors.New("model: unknown variable")

	// ErrNonFinite indicates a NaN or infinite coefficient or right-hand side.
	ErrNonFinite = errors.New("model: non-finite coefficient")

	// ErrAssignmentSize indicates an assignment whose length differs from NumVars.
	ErrAssignmentSize = errors.New("model: assignment size mismatch")

	// ErrMalformedSolution indicates an unreadable solution file line.
	ErrMalformedSolution = errors.New("model: malformed solution file")
)
