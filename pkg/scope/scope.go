package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/ionplot/pkg/config"
	"github.com/itohio/ionplot/pkg/sample"
)

// DefaultMaxDisplayPoints limits the points drawn per series.
const DefaultMaxDisplayPoints = 1000

// Palette holds the series colors, in channel order.
var Palette = []color.Color{
	color.RGBA{R: 255, G: 165, B: 0, A: 255},   // Orange
	color.RGBA{R: 100, G: 200, B: 255, A: 255}, // Light blue
	color.RGBA{R: 120, G: 220, B: 120, A: 255}, // Green
}

// Options describes the fixed layout of the chart.
type Options struct {
	Title  string
	YLabel string
	Labels []string // Legend label per series
	Length int      // X domain is [0, Length)
	YMin   float64
	YMax   float64
}

// OptionsFromConfig builds chart options from the application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Title:  cfg.Chart.Title,
		YLabel: cfg.Chart.YLabel,
		Labels: cfg.Channels,
		Length: cfg.History.Length,
		YMin:   cfg.Chart.YMin,
		YMax:   cfg.Chart.YMax,
	}
}

// seriesColor returns the color of series i.
func seriesColor(i int) color.Color {
	return Palette[i%len(Palette)]
}

// ChartWidget is a custom Fyne widget that draws the channel histories as lines
// over a fixed domain.
type ChartWidget struct {
	widget.BaseWidget

	opts Options

	// Data (protected by mu)
	mu     sync.RWMutex
	series [][]float64
	latest []float64
	label  string

	// Display buffers (reused for decimation)
	display [][]float64
	step    float64 // History index distance between display points

	maxDisplayPoints int
}

// New creates a new ChartWidget with every series zero-filled.
func New(opts Options) *ChartWidget {
	c := &ChartWidget{
		opts:             opts,
		series:           make([][]float64, len(opts.Labels)),
		latest:           make([]float64, len(opts.Labels)),
		display:          make([][]float64, len(opts.Labels)),
		step:             1,
		maxDisplayPoints: DefaultMaxDisplayPoints,
	}
	for i := range c.series {
		c.series[i] = make([]float64, opts.Length)
	}
	c.decimate()
	c.ExtendBaseWidget(c)
	return c
}

// UpdateData replaces the displayed series. The widget keeps the slices, so
// callers must hand over copies.
// This should be called from the acquisition callback using fyne.Do().
func (c *ChartWidget) UpdateData(label string, series [][]float64) {
	c.mu.Lock()
	c.series = series
	c.label = label
	c.latest = c.latest[:0]
	for _, s := range series {
		if len(s) == 0 {
			c.latest = append(c.latest, 0)
			continue
		}
		c.latest = append(c.latest, s[len(s)-1])
	}
	c.decimate()
	c.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	c.Refresh()
}

// decimate refreshes the display buffers from series. Caller holds mu.
func (c *ChartWidget) decimate() {
	if len(c.display) != len(c.series) {
		c.display = make([][]float64, len(c.series))
	}
	c.step = 1
	for i, s := range c.series {
		c.display[i], c.step = sample.Decimate(c.display[i], s, c.maxDisplayPoints)
	}
}

// Series returns the displayed series.
func (c *ChartWidget) Series() [][]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series
}

// CreateRenderer creates the widget renderer.
func (c *ChartWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &chartRenderer{
		chart:      c,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
