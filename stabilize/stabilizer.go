// Package stabilize aggregates noisy per-frame target detections into a single
// stable geometric report per physical target. A fixed window of consecutive
// corner observations is averaged to reject detector jitter, and a dedup guard
// ensures each target is reported exactly once per process lifetime.
package stabilize

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/uavteam2/percept/detection"
)

// DefaultWindow is the number of consecutive corner observations averaged into
// one stabilized report.
const DefaultWindow = 10

// A Report is the one-shot stabilized geometry for a target: the elementwise
// mean of a full window of pixel corners, plus the box size as a fraction of
// the frame taken from the most recent observation.
type Report struct {
	Target      detection.TargetID `json:"id"`
	Corners     [4]r2.Point        `json:"corners"`
	WidthRatio  float64            `json:"width_ratio"`
	HeightRatio float64            `json:"height_ratio"`
}

// A Stabilizer owns one corner buffer per target plus the set of targets that
// have already been reported. It is constructed once at startup and owned by
// the frame-processing path; it is not safe for concurrent use.
type Stabilizer struct {
	window    int
	logger    golog.Logger
	buffers   map[detection.TargetID]*cornerBuffer
	published map[detection.TargetID]bool
}

// NewStabilizer returns a Stabilizer averaging over the given window size.
func NewStabilizer(window int, logger golog.Logger) (*Stabilizer, error) {
	if window <= 0 {
		return nil, errors.Errorf("window size must be positive, got %d", window)
	}
	return &Stabilizer{
		window:    window,
		logger:    logger,
		buffers:   map[detection.TargetID]*cornerBuffer{},
		published: map[detection.TargetID]bool{},
	}, nil
}

// Observe records one corner observation for the target. The boolean is true
// exactly once per target: on the observation that fills the window for a
// not-yet-reported target. The returned report is only valid when true.
//
// Observations of a target that left and re-entered the frame keep filling the
// same buffer; the window intentionally mixes old and new corners since the
// goal is "seen reliably enough", not track continuity.
func (s *Stabilizer) Observe(
	id detection.TargetID,
	corners detection.Corners,
	widthRatio, heightRatio float64,
) (Report, bool) {
	if s.published[id] {
		// Already reported; nothing further will ever be published for this
		// target, so there is no point buffering.
		return Report{}, false
	}
	buf, ok := s.buffers[id]
	if !ok {
		buf = newCornerBuffer(s.window)
		s.buffers[id] = buf
	}
	buf.Add(corners)
	if !buf.Full() {
		return Report{}, false
	}
	report := Report{
		Target:      id,
		Corners:     buf.Mean(),
		WidthRatio:  widthRatio,
		HeightRatio: heightRatio,
	}
	s.published[id] = true
	delete(s.buffers, id)
	s.logger.Infow("target stabilized", "target", int(id), "label", id.Label())
	return report, true
}

// Published reports whether the target has already crossed the publication
// boundary.
func (s *Stabilizer) Published(id detection.TargetID) bool {
	return s.published[id]
}
