package ingest

import "errors"

var (
	// ErrUnknownFormat indicates an unsupported or uninferable file format.
	ErrUnknownFormat = errors.New("ingest: unknown format")

	// ErrBadRecord indicates a malformed YAML record or CSV row.
	ErrBadRecord = errors.New("ingest: malformed record")

	// ErrDuplicatePool indicates a venue listing one pair twice.
	ErrDuplicatePool = errors.New("ingest: duplicate pool")

	// ErrBadGenerator indicates invalid generator parameters.
	ErrBadGenerator = errors.New("ingest: invalid generator parameters")
)
