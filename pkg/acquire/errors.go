package acquire

import (
	"errors"
	"fmt"

	"github.com/itohio/ionplot/pkg/ion"
	"github.com/itohio/ionplot/pkg/sample"
)

// ErrNoData is returned by Tick when the transport read timed out without a full line.
var ErrNoData = errors.New("no data before read timeout")

// TransportError reports a broken or closed transport. It ends the acquisition loop.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ArityError reports a line whose value count differs from the channel count.
type ArityError struct {
	Got  int
	Want int
	Row  string // The row that would have been recorded
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("expected %d values, got %d in %q", e.Want, e.Got, e.Row)
}

// Recoverable reports whether err only drops the current tick.
// Parse errors, arity mismatches, read timeouts and overlong lines are recoverable;
// transport and record failures are not.
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	var perr *sample.ParseError
	if errors.As(err, &perr) {
		return true
	}
	var aerr *ArityError
	if errors.As(err, &aerr) {
		return true
	}
	return errors.Is(err, ErrNoData) || errors.Is(err, ion.ErrLineTooLong)
}
