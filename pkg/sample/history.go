package sample

// DefaultHistoryLength is the number of values kept per channel when no length is given.
const DefaultHistoryLength = 100

// History is a fixed-capacity FIFO of the most recent values of one channel.
// It starts zero-filled, so its length is always its capacity.
// Internally it is a ring buffer; externally it appears ordered oldest to newest.
type History struct {
	values []float64
	head   int // index of the oldest value
}

// NewHistory creates a zero-filled history holding n values.
func NewHistory(n int) *History {
	if n <= 0 {
		n = DefaultHistoryLength
	}
	return &History{values: make([]float64, n)}
}

// Len returns the number of values held, which equals the capacity.
func (h *History) Len() int {
	return len(h.values)
}

// Push appends v as the newest value, evicting the oldest.
func (h *History) Push(v float64) {
	h.values[h.head] = v
	h.head++
	if h.head == len(h.values) {
		h.head = 0
	}
}

// Latest returns the most recently pushed value (zero before any push).
func (h *History) Latest() float64 {
	i := h.head - 1
	if i < 0 {
		i = len(h.values) - 1
	}
	return h.values[i]
}

// Snapshot copies the values into dst, oldest first, and returns it.
// dst is reused if it has sufficient capacity, otherwise a new slice is allocated.
func (h *History) Snapshot(dst []float64) []float64 {
	if cap(dst) >= len(h.values) {
		dst = dst[:len(h.values)]
	} else {
		dst = make([]float64, len(h.values))
	}
	n := copy(dst, h.values[h.head:])
	copy(dst[n:], h.values[:h.head])
	return dst
}

// Histories holds one History per channel, updated in lockstep.
type Histories struct {
	channels []*History
}

// NewHistories creates channels zero-filled histories of length n each.
func NewHistories(channels, n int) *Histories {
	hs := &Histories{channels: make([]*History, channels)}
	for i := range hs.channels {
		hs.channels[i] = NewHistory(n)
	}
	return hs
}

// Channels returns the number of channels.
func (hs *Histories) Channels() int {
	return len(hs.channels)
}

// Len returns the length of every channel history.
func (hs *Histories) Len() int {
	if len(hs.channels) == 0 {
		return 0
	}
	return hs.channels[0].Len()
}

// Channel returns the history of channel ch.
func (hs *Histories) Channel(ch int) *History {
	return hs.channels[ch]
}

// Push pushes values[i] into channel i, in channel order.
// values must have exactly one entry per channel; callers check arity first.
func (hs *Histories) Push(values []float64) {
	for i, h := range hs.channels {
		h.Push(values[i])
	}
}

// Snapshot returns a copy of channel ch, oldest first.
func (hs *Histories) Snapshot(ch int) []float64 {
	return hs.channels[ch].Snapshot(nil)
}

// Snapshots returns a copy of every channel, oldest first.
func (hs *Histories) Snapshots() [][]float64 {
	out := make([][]float64, len(hs.channels))
	for i, h := range hs.channels {
		out[i] = h.Snapshot(nil)
	}
	return out
}

// Latest returns the newest value of every channel.
func (hs *Histories) Latest() []float64 {
	out := make([]float64, len(hs.channels))
	for i, h := range hs.channels {
		out[i] = h.Latest()
	}
	return out
}
