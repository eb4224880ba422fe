package ph

// Window is a fixed-size rolling window over the most recent samples.
// It starts zero-filled, so early means are pulled toward zero until
// the window has seen a full set of real samples.
type Window struct {
	vals []float64
}

func NewWindow(size int) *Window {
	return &Window{vals: make([]float64, size)}
}

// Push appends v, dropping the oldest sample.
func (w *Window) Push(v float64) {
	copy(w.vals, w.vals[1:])
	w.vals[len(w.vals)-1] = v
}

// Mean over the whole window.
func (w *Window) Mean() float64 {
	var sum float64
	for _, v := range w.vals {
		sum += v
	}
	return sum / float64(len(w.vals))
}
