package ion

// LineSource defines the transport the acquisition loop reads from (real or simulated).
type LineSource interface {
	// ReadLine blocks until one newline terminated line is available and returns it
	// without the line terminator.
	ReadLine() (string, error)
	Close() error
}

// Device is a LineSource that has to be connected before reading.
type Device interface {
	LineSource
	Connect() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
