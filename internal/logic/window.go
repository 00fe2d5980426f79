package logic

// Window is a fixed-capacity FIFO of the most recent readings.
// Not safe for concurrent use.
type Window struct {
	buf      []float64
	capacity int
	head     int // next write position
	count    int
}

// NewWindow creates an empty window holding at most capacity readings.
// A capacity below 1 is treated as 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		buf:      make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends a reading, evicting the oldest one when the window is full.
func (w *Window) Push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// IsFull reports whether the window holds capacity readings.
func (w *Window) IsFull() bool {
	return w.count == w.capacity
}

// Len returns the number of readings held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.capacity
}

// Values returns a copy of the readings, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	// Oldest item is at (head - count) mod capacity
	start := (w.head - w.count + w.capacity) % w.capacity
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%w.capacity]
	}
	return out
}
