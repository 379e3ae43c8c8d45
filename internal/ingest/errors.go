package ingest

import (
	"errors"
	"fmt"
)

// Input parse errors. Callers treat both as a failed invocation.
var (
	// ErrNoInput means no argument held parseable report data.
	ErrNoInput = errors.New("could not parse JSON from any argument")
	// ErrNotArray means the input parsed but its top level is not an array.
	ErrNotArray = errors.New("report data must be a JSON array")
)

// DataShapeError reports a record the decoder could not interpret. A batch
// with a malformed record produces no clusters rather than partial ones.
type DataShapeError struct {
	Index  int // position of the record in the input array
	Reason string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}
