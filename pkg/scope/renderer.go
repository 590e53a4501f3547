package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(36)
	marginBottom = float32(40)

	numHLines = 10 // horizontal grid divisions of the Y range
	numVLines = 10 // vertical grid divisions of the X range
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	titleColor = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// chartRenderer renders the chart widget.
type chartRenderer struct {
	chart *ChartWidget

	background *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *chartRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *chartRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.chart.BaseWidget.Refresh()
	}
}

// Refresh rebuilds all canvas objects from the current data.
func (r *chartRenderer) Refresh() {
	r.chart.mu.RLock()
	display := r.chart.display
	step := r.chart.step
	latest := r.chart.latest
	label := r.chart.label
	r.chart.mu.RUnlock()

	opts := r.chart.opts

	size := r.chart.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	a := plotArea(size)

	r.drawGrid(a, opts)
	r.drawTitle(a, opts, label)
	for i, s := range display {
		r.drawSeries(a, opts, s, step, seriesColor(i))
	}
	r.drawLegend(a, opts, latest)
}

// area is the plotting rectangle inside the margins.
type area struct {
	X, Y, Width, Height float32
}

// plotArea returns the plotting rectangle for a widget of the given size.
func plotArea(size fyne.Size) area {
	return area{
		X:      marginLeft,
		Y:      marginTop,
		Width:  math32.Max(size.Width-marginLeft-marginRight, 1),
		Height: math32.Max(size.Height-marginTop-marginBottom, 1),
	}
}

// xToPixel maps history position x of n onto the plot width. The domain is [0, n).
func xToPixel(x float64, n int, a area) float32 {
	if n <= 1 {
		return a.X
	}
	return a.X + float32(x/float64(n))*a.Width
}

// yToPixel maps v onto the plot height. Values outside [yMin, yMax] are clamped
// to the plot edges.
func yToPixel(v, yMin, yMax float64, a area) float32 {
	frac := float32((v - yMin) / (yMax - yMin))
	frac = math32.Max(0, math32.Min(1, frac))
	return a.Y + a.Height - frac*a.Height
}

// drawGrid draws the grid with Y (volts) and X (sample index) labels.
func (r *chartRenderer) drawGrid(a area, opts Options) {
	for i := range numHLines + 1 {
		y := a.Y + float32(i)*a.Height/float32(numHLines)
		r.addLine(fyne.NewPos(a.X, y), fyne.NewPos(a.X+a.Width, y), gridColor, 1)

		value := opts.YMax - float64(i)*(opts.YMax-opts.YMin)/float64(numHLines)
		text := canvas.NewText(formatVoltage(value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(a.X-5, y-6))
		r.objects = append(r.objects, text)
	}

	for i := range numVLines + 1 {
		x := a.X + float32(i)*a.Width/float32(numVLines)
		r.addLine(fyne.NewPos(x, a.Y), fyne.NewPos(x, a.Y+a.Height), gridColor, 1)

		index := i * opts.Length / numVLines
		text := canvas.NewText(strconv.Itoa(index), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-10, a.Y+a.Height+5))
		r.objects = append(r.objects, text)
	}

	ylabel := canvas.NewText(opts.YLabel, labelColor)
	ylabel.TextSize = 11
	ylabel.Move(fyne.NewPos(4, a.Y-18))
	r.objects = append(r.objects, ylabel)
}

// drawTitle draws the chart title and the label of the newest sample.
func (r *chartRenderer) drawTitle(a area, opts Options, label string) {
	title := canvas.NewText(opts.Title, titleColor)
	title.TextSize = 14
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter
	title.Move(fyne.NewPos(a.X+a.Width/2, 8))
	r.objects = append(r.objects, title)

	if label != "" {
		stamp := canvas.NewText(label, labelColor)
		stamp.TextSize = 11
		stamp.Alignment = fyne.TextAlignTrailing
		stamp.Move(fyne.NewPos(a.X+a.Width, 10))
		r.objects = append(r.objects, stamp)
	}
}

// drawSeries draws one decimated channel history as connected line segments.
// Display point i sits at history position i*step.
func (r *chartRenderer) drawSeries(a area, opts Options, values []float64, step float64, c color.Color) {
	if len(values) < 2 {
		return
	}

	n := opts.Length
	if span := int(float64(len(values)) * step); n < span {
		n = span
	}

	prev := fyne.NewPos(xToPixel(0, n, a), yToPixel(values[0], opts.YMin, opts.YMax, a))
	for i := 1; i < len(values); i++ {
		next := fyne.NewPos(xToPixel(float64(i)*step, n, a), yToPixel(values[i], opts.YMin, opts.YMax, a))
		r.addLine(prev, next, c, 1.5)
		prev = next
	}
}

// drawLegend draws a swatch, label and latest value per series in the top left corner.
func (r *chartRenderer) drawLegend(a area, opts Options, latest []float64) {
	for i, name := range opts.Labels {
		y := a.Y + 10 + float32(i)*16
		c := seriesColor(i)
		r.addLine(fyne.NewPos(a.X+10, y+7), fyne.NewPos(a.X+30, y+7), c, 2.5)

		text := name
		if i < len(latest) {
			text += " " + formatVoltage(latest[i])
		}
		label := canvas.NewText(text, c)
		label.TextSize = 11
		label.Move(fyne.NewPos(a.X+36, y))
		r.objects = append(r.objects, label)
	}
}

func (r *chartRenderer) addLine(p1, p2 fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *chartRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *chartRenderer) Destroy() {}

func formatVoltage(v float64) string {
	if math32.Abs(float32(v)) < 0.001 {
		return "0.000V"
	}
	return strconv.FormatFloat(v, 'f', 3, 64) + "V"
}
