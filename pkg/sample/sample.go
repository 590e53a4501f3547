package sample

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample represents one parsed line from the front-end.
type Sample struct {
	Label  string    // Leading token, kept as sent (usually a wall-clock time)
	Values []float64 // Channel readings in channel order (V)
}

// ErrNotFinite is wrapped by ParseError for NaN and infinite readings.
var ErrNotFinite = errors.New("value is not finite")

// ParseError reports a channel token that is not a finite number.
type ParseError struct {
	Index int    // Position of the token in the line, the label being 0
	Token string // Offending token
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("token %d %q is not a number: %v", e.Index, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses a whitespace separated line into a Sample.
// Format: label value value ...
// Example: 12:00:01 1.1 2.2 3.3
// An empty line yields an empty label and no values. The arity is not checked here.
func ParseLine(line string) (Sample, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Sample{}, nil
	}

	s := Sample{
		Label:  fields[0],
		Values: make([]float64, 0, len(fields)-1),
	}
	for i, tok := range fields[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Sample{}, &ParseError{Index: i + 1, Token: tok, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, &ParseError{Index: i + 1, Token: tok, Err: ErrNotFinite}
		}
		s.Values = append(s.Values, v)
	}

	return s, nil
}
