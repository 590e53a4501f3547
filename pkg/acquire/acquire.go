package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/ionplot/pkg/ion"
	"github.com/itohio/ionplot/pkg/record"
	"github.com/itohio/ionplot/pkg/sample"
)

// Config holds the acquisition parameters.
type Config struct {
	Arity    int           // Number of values expected after the label
	Interval time.Duration // Time between ticks
}

// DefaultConfig returns the configuration of the three channel ion front-end.
func DefaultConfig() Config {
	return Config{
		Arity:    3,
		Interval: time.Second,
	}
}

// Sink is the append-only destination of accepted samples.
type Sink interface {
	Append(label string, values []float64) error
	Close() error
}

var _ Sink = (*record.Recorder)(nil)

// Update is delivered to OnUpdate callbacks after each accepted sample.
type Update struct {
	Sample sample.Sample
	Series [][]float64 // Copy of every channel history, oldest first
}

// Counters tracks what happened to each tick.
type Counters struct {
	Ticks       int
	Accepted    int
	ParseErrors int
	ArityErrors int
	Timeouts    int
}

// Acquirer reads one line per tick, keeps the rolling histories and records accepted samples.
// It owns the line source and the sink: both are closed when Run returns.
type Acquirer struct {
	cfg       Config
	src       ion.LineSource
	histories *sample.Histories
	sink      Sink

	callbacks []func(Update)
	counters  Counters

	closeOnce   sync.Once
	closeErr    error
	interrupted atomic.Bool
}

// New creates an Acquirer. The histories must have one channel per expected value.
func New(cfg Config, src ion.LineSource, histories *sample.Histories, sink Sink) (*Acquirer, error) {
	if cfg.Arity <= 0 {
		return nil, fmt.Errorf("arity must be positive, got %d", cfg.Arity)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if histories.Channels() != cfg.Arity {
		return nil, fmt.Errorf("histories have %d channels, arity is %d", histories.Channels(), cfg.Arity)
	}

	return &Acquirer{
		cfg:       cfg,
		src:       src,
		histories: histories,
		sink:      sink,
	}, nil
}

// OnUpdate registers a callback invoked after every accepted sample.
// Callbacks run on the acquisition goroutine and must return quickly.
// Register callbacks before calling Run.
func (a *Acquirer) OnUpdate(callback func(Update)) {
	a.callbacks = append(a.callbacks, callback)
}

// Histories returns the rolling histories. Only read them from the acquisition
// goroutine or after Run returns; callbacks receive copies.
func (a *Acquirer) Histories() *sample.Histories {
	return a.histories
}

// Counters returns the tick counters. Call it after Run returns.
func (a *Acquirer) Counters() Counters {
	return a.counters
}

// Tick performs one acquisition step: read a line, parse it, and when it has
// exactly Arity values record the row, push them into the histories and notify.
// Samples with any other value count are dropped without being recorded.
func (a *Acquirer) Tick() (sample.Sample, error) {
	a.counters.Ticks++

	line, err := a.src.ReadLine()
	if err != nil {
		switch {
		case errors.Is(err, ion.ErrTimeout):
			a.counters.Timeouts++
			return sample.Sample{}, ErrNoData
		case errors.Is(err, ion.ErrLineTooLong):
			a.counters.ParseErrors++
			return sample.Sample{}, err
		}
		return sample.Sample{}, &TransportError{Err: err}
	}

	s, err := sample.ParseLine(line)
	if err != nil {
		a.counters.ParseErrors++
		return sample.Sample{}, fmt.Errorf("failed to parse line %q: %w", line, err)
	}

	if len(s.Values) != a.cfg.Arity {
		a.counters.ArityErrors++
		return s, &ArityError{
			Got:  len(s.Values),
			Want: a.cfg.Arity,
			Row:  record.FormatRow(s.Label, s.Values),
		}
	}

	// The histories only hold samples that made it to the record
	if err := a.sink.Append(s.Label, s.Values); err != nil {
		return s, fmt.Errorf("failed to record sample: %w", err)
	}
	a.histories.Push(s.Values)
	a.counters.Accepted++

	a.notify(s)

	return s, nil
}

// Run calls Tick once per interval until ctx is done or the transport fails.
// Cancellation is observed between ticks. Recoverable errors are logged and the
// loop continues. On return the sink and the line source are closed.
// Run returns nil on cancellation or Interrupt.
func (a *Acquirer) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Acquisition stopped: %v", ctx.Err())
			return nil
		case <-ticker.C:
		}

		if ctx.Err() != nil {
			log.Printf("Acquisition stopped: %v", ctx.Err())
			return nil
		}

		if _, err := a.Tick(); err != nil {
			if Recoverable(err) {
				log.Printf("Dropping tick: %v", err)
				continue
			}
			if a.interrupted.Load() {
				log.Printf("Acquisition interrupted")
				return nil
			}
			return err
		}
	}
}

// Interrupt closes the line source to release a read in progress. Run then
// returns nil and closes the sink. Safe to call from any goroutine.
func (a *Acquirer) Interrupt() {
	a.interrupted.Store(true)
	if err := a.src.Close(); err != nil {
		log.Printf("Error closing line source: %v", err)
	}
}

// Close closes the sink and the line source. Only the first call has an effect.
func (a *Acquirer) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = errors.Join(a.sink.Close(), a.src.Close())
	})
	return a.closeErr
}

// notify invokes all registered callbacks with copies of the histories.
func (a *Acquirer) notify(s sample.Sample) {
	if len(a.callbacks) == 0 {
		return
	}

	u := Update{
		Sample: s,
		Series: a.histories.Snapshots(),
	}
	for _, cb := range a.callbacks {
		if cb != nil {
			cb(u)
		}
	}
}
