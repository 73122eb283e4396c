package stabilize

import (
	"github.com/golang/geo/r2"

	"github.com/uavteam2/percept/detection"
)

// cornerBuffer is a fixed-capacity ring of the most recent corner observations
// for one target. Once full, each new observation evicts the oldest.
type cornerBuffer struct {
	data  []detection.Corners
	pos   int
	count int
}

func newCornerBuffer(capacity int) *cornerBuffer {
	return &cornerBuffer{data: make([]detection.Corners, capacity)}
}

func (cb *cornerBuffer) Capacity() int {
	return len(cb.data)
}

func (cb *cornerBuffer) Len() int {
	return cb.count
}

func (cb *cornerBuffer) Full() bool {
	return cb.count == len(cb.data)
}

func (cb *cornerBuffer) Add(c detection.Corners) {
	cb.data[cb.pos] = c
	cb.pos++
	if cb.pos >= len(cb.data) {
		cb.pos = 0
	}
	if cb.count < len(cb.data) {
		cb.count++
	}
}

// Mean returns the elementwise arithmetic mean of the buffered corner sets.
// Only meaningful once the buffer is full.
func (cb *cornerBuffer) Mean() [4]r2.Point {
	var mean [4]r2.Point
	if cb.count == 0 {
		return mean
	}
	for _, cs := range cb.data[:cb.count] {
		for i, pt := range cs {
			mean[i].X += float64(pt.X)
			mean[i].Y += float64(pt.Y)
		}
	}
	n := float64(cb.count)
	for i := range mean {
		mean[i].X /= n
		mean[i].Y /= n
	}
	return mean
}
