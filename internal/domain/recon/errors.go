package recon

import "errors"

var (
	// ErrDuplicateMatch is returned when a manual match names an invoice or
	// bank record that already belongs to a match in the run.
	ErrDuplicateMatch = errors.New("record already matched")

	// ErrNotFound is returned when a ref or match id does not exist in the
	// run.
	ErrNotFound = errors.New("not found")
)
