package fusion

// WindowSize is the number of samples kept per smoothed metric.
const WindowSize = 10

// Window is a bounded FIFO of samples.
type Window struct {
	size    int
	samples []float64
}

// NewWindow returns a window keeping at most size samples.
func NewWindow(size int) *Window {
	return &Window{size: size, samples: make([]float64, 0, size)}
}

// Push appends v, evicting the oldest sample when full.
func (w *Window) Push(v float64) {
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, v)
}

// Len is the number of samples held.
func (w *Window) Len() int { return len(w.samples) }

// WeightedAverage weighs the i-th oldest sample by i+1. An empty window averages to 0.
func (w *Window) WeightedAverage() float64 {
	return WeightedAverage(w.samples)
}

// WeightedAverage is sum((i+1)*v[i]) / sum(i+1).
func WeightedAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, weights float64
	for i, v := range values {
		wgt := float64(i + 1)
		sum += v * wgt
		weights += wgt
	}
	return sum / weights
}
