package ion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the sensor front-end firmware writes at.
	DefaultBaudRate = 115200
	// MaxLineLength bounds a line that never sees its terminator.
	MaxLineLength = 64 * 1024

	readChunkSize = 256
)

var (
	// ErrClosed is returned when reading from a source that is closed or was never connected.
	ErrClosed = errors.New("line source closed")
	// ErrTimeout is returned when the read timeout elapsed before a complete line arrived.
	// Partial input is kept for the next read.
	ErrTimeout = errors.New("read timeout")
	// ErrLineTooLong is returned when MaxLineLength bytes arrived without a newline.
	// The buffered bytes are discarded.
	ErrLineTooLong = errors.New("line too long")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a line source backed by a serial port.
type Serial struct {
	port        string
	baudRate    int
	readTimeout time.Duration

	mu        sync.RWMutex
	conn      serial.Port
	lines     *lineReader
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and read timeout.
// A zero read timeout blocks until a full line arrives.
func New(port string, baudRate int, readTimeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	if d.readTimeout > 0 {
		if err := port.SetReadTimeout(d.readTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout on %s: %w", d.port, err)
		}
	}

	d.conn = port
	d.lines = newLineReader(port)
	d.connected = true

	return nil
}

// ReadLine blocks until a full line is read from the port.
// Only one goroutine may read at a time; Close may be called concurrently to unblock it.
func (d *Serial) ReadLine() (string, error) {
	d.mu.RLock()
	lines := d.lines
	connected := d.connected
	d.mu.RUnlock()

	if !connected {
		return "", ErrClosed
	}

	line, err := lines.ReadLine()
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrLineTooLong) {
			return "", err
		}
		if !d.IsConnected() {
			return "", ErrClosed
		}
		return "", fmt.Errorf("failed to read from serial port %s: %w", d.port, err)
	}
	return line, nil
}

// Close closes the serial port. Closing twice is a no-op.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	return nil
}

// IsConnected returns whether the port is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// lineReader splits a byte stream into newline terminated lines.
// A zero byte read with no error is a read timeout, as reported by go.bug.st/serial.
type lineReader struct {
	r       io.Reader
	buf     []byte
	pending []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:   r,
		buf: make([]byte, readChunkSize),
	}
}

// ReadLine returns the next line with the trailing "\n" or "\r\n" removed.
func (lr *lineReader) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(lr.pending, '\n'); i >= 0 {
			line := string(bytes.TrimRight(lr.pending[:i], "\r"))
			lr.pending = append(lr.pending[:0], lr.pending[i+1:]...)
			return line, nil
		}
		if len(lr.pending) >= MaxLineLength {
			lr.pending = lr.pending[:0]
			return "", ErrLineTooLong
		}

		n, err := lr.r.Read(lr.buf)
		lr.pending = append(lr.pending, lr.buf[:n]...)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", ErrTimeout
		}
	}
}
