package ion

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/ionplot/pkg/config"
)

// Mock simulates the ion sensor front-end for testing and development.
// It emits "HH:MM:SS v0 v1 v2" lines at the configured sample rate.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	ticker    *time.Ticker
	connected bool

	// Simulation state
	startTime time.Time
	rng       *rand.Rand
	now       func() time.Time
}

// NewMock creates a new simulated front-end.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	return &Mock{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(1, 2)),
		now: time.Now,
	}
}

// Connect starts the simulation clock.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	rate := m.cfg.SampleRate
	if rate <= 0 {
		rate = time.Second
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.ticker = time.NewTicker(rate)
	m.startTime = m.now()
	m.connected = true

	return nil
}

// ReadLine blocks until the next simulated line is due.
func (m *Mock) ReadLine() (string, error) {
	m.mu.RLock()
	connected := m.connected
	ctx := m.ctx
	ticker := m.ticker
	m.mu.RUnlock()

	if !connected {
		return "", ErrClosed
	}

	select {
	case <-ctx.Done():
		return "", ErrClosed
	case <-ticker.C:
		return m.generateLine(), nil
	}
}

// Close stops the simulation and unblocks a pending ReadLine.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.ticker.Stop()
	m.connected = false

	return nil
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generateLine formats one simulated sample line.
func (m *Mock) generateLine() string {
	now := m.now()
	values := m.generateValues(now.Sub(m.startTime))

	var b strings.Builder
	b.WriteString(now.Format("15:04:05"))
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
	}
	return b.String()
}

// generateValues returns one voltage per channel at the given elapsed time.
// Each channel drifts sinusoidally around its base voltage, phase shifted per channel,
// with uniform noise on top. Values are clamped to the 0-5V input range.
func (m *Mock) generateValues(elapsed time.Duration) []float64 {
	period := m.cfg.DriftPeriod.Seconds()
	if period <= 0 {
		period = 120
	}

	values := make([]float64, len(m.cfg.Base))
	for i, base := range m.cfg.Base {
		phase := 2*math.Pi*elapsed.Seconds()/period + float64(i)*2*math.Pi/3
		drift := 0.1 * math.Sin(phase)
		noise := (m.rng.Float64()*2 - 1) * m.cfg.NoiseLevel
		values[i] = math.Max(0, math.Min(5, base+drift+noise))
	}
	return values
}
