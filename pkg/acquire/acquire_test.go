package acquire

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/itohio/ionplot/pkg/ion"
	"github.com/itohio/ionplot/pkg/record"
	"github.com/itohio/ionplot/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineSource replays lines, then returns err. Close makes further reads fail with ion.ErrClosed.
type lineSource struct {
	mu     sync.Mutex
	lines  []string
	err    error
	closes int
	closed bool
}

func (s *lineSource) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ion.ErrClosed
	}
	if len(s.lines) == 0 {
		return "", s.err
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *lineSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.closed = true
	return nil
}

// blockingSource blocks every read until closed.
type blockingSource struct {
	done chan struct{}
	once sync.Once
}

func (s *blockingSource) ReadLine() (string, error) {
	<-s.done
	return "", ion.ErrClosed
}

func (s *blockingSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// memSink records rows in memory.
type memSink struct {
	rows   []string
	closes int
	err    error
}

func (s *memSink) Append(label string, values []float64) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, record.FormatRow(label, values))
	return nil
}

func (s *memSink) Close() error {
	s.closes++
	return nil
}

func newTestAcquirer(t *testing.T, src ion.LineSource, sink Sink) *Acquirer {
	t.Helper()
	a, err := New(Config{Arity: 3, Interval: time.Millisecond}, src, sample.NewHistories(3, 5), sink)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	src := &lineSource{}
	sink := &memSink{}

	_, err := New(Config{Arity: 0, Interval: time.Second}, src, sample.NewHistories(3, 5), sink)
	assert.Error(t, err)

	_, err = New(Config{Arity: 3, Interval: 0}, src, sample.NewHistories(3, 5), sink)
	assert.Error(t, err)

	_, err = New(Config{Arity: 3, Interval: time.Second}, src, sample.NewHistories(2, 5), sink)
	assert.Error(t, err)

	a, err := New(DefaultConfig(), src, sample.NewHistories(3, 5), sink)
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestTick_AcceptsThreeValues(t *testing.T) {
	src := &lineSource{lines: []string{"12:00:01 1.1 2.2 3.3"}, err: io.EOF}
	sink := &memSink{}
	a := newTestAcquirer(t, src, sink)

	var updates []Update
	a.OnUpdate(func(u Update) { updates = append(updates, u) })

	s, err := a.Tick()
	require.NoError(t, err)
	assert.Equal(t, "12:00:01", s.Label)
	assert.Equal(t, []float64{1.1, 2.2, 3.3}, s.Values)

	hs := a.Histories()
	assert.Equal(t, []float64{0, 0, 0, 0, 1.1}, hs.Snapshot(0))
	assert.Equal(t, []float64{0, 0, 0, 0, 2.2}, hs.Snapshot(1))
	assert.Equal(t, []float64{0, 0, 0, 0, 3.3}, hs.Snapshot(2))
	assert.Equal(t, []string{"12:00:01, 1.1, 2.2, 3.3"}, sink.rows)

	require.Len(t, updates, 1)
	assert.Equal(t, s, updates[0].Sample)
	assert.Equal(t, hs.Snapshots(), updates[0].Series)
	assert.Equal(t, Counters{Ticks: 1, Accepted: 1}, a.Counters())
}

func TestTick_ArityMismatchDropped(t *testing.T) {
	tests := []struct {
		name string
		line string
		got  int
	}{
		{"two values", "12:00:02 1.1 2.2", 2},
		{"four values", "12:00:02 1.1 2.2 3.3 4.4", 4},
		{"label only", "12:00:02", 0},
		{"empty line", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &lineSource{lines: []string{tt.line}, err: io.EOF}
			sink := &memSink{}
			a := newTestAcquirer(t, src, sink)
			notified := false
			a.OnUpdate(func(Update) { notified = true })

			_, err := a.Tick()
			require.Error(t, err)
			var aerr *ArityError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.got, aerr.Got)
			assert.Equal(t, 3, aerr.Want)
			assert.True(t, Recoverable(err))

			for ch := 0; ch < 3; ch++ {
				assert.Equal(t, []float64{0, 0, 0, 0, 0}, a.Histories().Snapshot(ch))
			}
			assert.Empty(t, sink.rows)
			assert.False(t, notified)
			assert.Equal(t, 1, a.Counters().ArityErrors)
		})
	}
}

func TestTick_ParseErrorDropped(t *testing.T) {
	src := &lineSource{lines: []string{"abc xyz 1.0 2.0 3.0"}, err: io.EOF}
	sink := &memSink{}
	a := newTestAcquirer(t, src, sink)

	_, err := a.Tick()
	require.Error(t, err)
	var perr *sample.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "xyz", perr.Token)
	assert.True(t, Recoverable(err))

	assert.Equal(t, []float64{0, 0, 0, 0, 0}, a.Histories().Snapshot(0))
	assert.Empty(t, sink.rows)
	assert.Equal(t, 1, a.Counters().ParseErrors)
}

func TestTick_TransportError(t *testing.T) {
	broken := errors.New("device unplugged")
	src := &lineSource{err: broken}
	a := newTestAcquirer(t, src, &memSink{})

	_, err := a.Tick()
	require.Error(t, err)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.ErrorIs(t, err, broken)
	assert.False(t, Recoverable(err))
}

func TestTick_Timeout(t *testing.T) {
	src := &lineSource{err: ion.ErrTimeout}
	a := newTestAcquirer(t, src, &memSink{})

	_, err := a.Tick()
	assert.ErrorIs(t, err, ErrNoData)
	assert.True(t, Recoverable(err))
	assert.Equal(t, 1, a.Counters().Timeouts)
}

func TestTick_SinkError(t *testing.T) {
	src := &lineSource{lines: []string{"t 1 2 3"}, err: io.EOF}
	sink := &memSink{err: record.ErrClosed}
	a := newTestAcquirer(t, src, sink)

	notified := false
	a.OnUpdate(func(Update) { notified = true })

	_, err := a.Tick()
	assert.ErrorIs(t, err, record.ErrClosed)
	assert.False(t, Recoverable(err))

	for ch := 0; ch < 3; ch++ {
		assert.Equal(t, []float64{0, 0, 0, 0, 0}, a.Histories().Snapshot(ch), "unrecorded sample must not be buffered")
	}
	assert.False(t, notified)
	assert.Equal(t, 0, a.Counters().Accepted)
}

func TestRun_StopsOnTransportErrorAndCloses(t *testing.T) {
	src := &lineSource{
		lines: []string{
			"12:00:01 1.1 2.2 3.3",
			"12:00:02 1.1 2.2",
			"abc xyz 1.0 2.0 3.0",
			"12:00:03 1.2 2.3 3.4",
		},
		err: io.EOF,
	}
	sink := &memSink{}
	a := newTestAcquirer(t, src, sink)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []string{"12:00:01, 1.1, 2.2, 3.3", "12:00:03, 1.2, 2.3, 3.4"}, sink.rows)
	assert.Equal(t, []float64{0, 0, 0, 1.1, 1.2}, a.Histories().Snapshot(0))
	assert.Equal(t, 1, sink.closes)
	assert.Equal(t, 1, src.closes)
	assert.Equal(t, Counters{Ticks: 5, Accepted: 2, ParseErrors: 1, ArityErrors: 1}, a.Counters())

	// Closing again does not close the sink a second time
	require.NoError(t, a.Close())
	assert.Equal(t, 1, sink.closes)
}

func TestRun_CancelBetweenTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measures.csv")
	rec, err := record.Create(path, []string{"Hora", "Calcio", "Nitratos", "Potasio"})
	require.NoError(t, err)

	src := &lineSource{lines: []string{"12:00:01 1.1 2.2 3.3", "12:00:02 1.2 2.3 3.4"}, err: ion.ErrTimeout}
	a := newTestAcquirer(t, src, rec)

	ctx, cancel := context.WithCancel(context.Background())
	a.OnUpdate(func(Update) {
		if a.Counters().Accepted == 2 {
			cancel()
		}
	})

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, 1, src.closes)
	assert.ErrorIs(t, rec.Append("late", []float64{1, 2, 3}), record.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Hora, Calcio, Nitratos, Potasio\n"+
			"12:00:01, 1.1, 2.2, 3.3\n"+
			"12:00:02, 1.2, 2.3, 3.4\n",
		string(data))
}

func TestRun_InterruptUnblocksRead(t *testing.T) {
	src := &blockingSource{done: make(chan struct{})}
	sink := &memSink{}
	a := newTestAcquirer(t, src, sink)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	a.Interrupt()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Interrupt")
	}
	assert.Equal(t, 1, sink.closes)
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(nil))
	assert.True(t, Recoverable(ErrNoData))
	assert.True(t, Recoverable(ion.ErrLineTooLong))
	assert.True(t, Recoverable(&ArityError{Got: 2, Want: 3}))
	assert.True(t, Recoverable(&sample.ParseError{Token: "x"}))
	assert.False(t, Recoverable(&TransportError{Err: io.EOF}))
	assert.False(t, Recoverable(errors.New("disk full")))
}
