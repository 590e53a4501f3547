package record

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Separator joins the columns of a row.
const Separator = ", "

// ErrClosed is returned when appending to a closed recorder.
var ErrClosed = errors.New("recorder closed")

// Recorder appends accepted samples as text rows to a file.
// The file is truncated on creation and starts with a header row.
type Recorder struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *bufio.Writer
	rows   int
	closed bool
}

// Create creates or truncates path and writes the header row.
func Create(path string, header []string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file %s: %w", path, err)
	}

	r := &Recorder{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}

	if _, err := r.w.WriteString(strings.Join(header, Separator) + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := r.w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	return r, nil
}

// Path returns the file path being written.
func (r *Recorder) Path() string {
	return r.path
}

// Rows returns the number of data rows appended so far.
func (r *Recorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Append writes one row and flushes it, so the file only ever holds complete rows.
func (r *Recorder) Append(label string, values []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if _, err := r.w.WriteString(FormatRow(label, values) + "\n"); err != nil {
		return fmt.Errorf("failed to append row to %s: %w", r.path, err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("failed to append row to %s: %w", r.path, err)
	}
	r.rows++

	return nil
}

// Close flushes and closes the file. Only the first call has an effect.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	flushErr := r.w.Flush()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close record file %s: %w", r.path, err)
	}
	if flushErr != nil {
		return fmt.Errorf("failed to flush record file %s: %w", r.path, flushErr)
	}

	return nil
}

// FormatRow formats a row as "label, v0, v1, ...".
func FormatRow(label string, values []float64) string {
	var b strings.Builder
	b.WriteString(label)
	for _, v := range values {
		b.WriteString(Separator)
		b.WriteString(FormatValue(v))
	}
	return b.String()
}

// FormatValue formats a reading with the shortest decimal representation that
// round-trips. Values with a decimal exponent below -4 or from 16 up use
// exponent notation ("1e-05", "1e+16"), the rest keep a fractional part
// ("2.0"). Non-finite values are written as nan, inf and -inf.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if v != 0 {
		e := strconv.FormatFloat(v, 'e', -1, 64)
		exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
		if err == nil && (exp < -4 || exp >= 16) {
			return e
		}
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
