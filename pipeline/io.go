package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/uavteam2/percept/aruco"
	"github.com/uavteam2/percept/detection"
	"github.com/uavteam2/percept/stabilize"
)

// Wire records for the JSON-lines boundary. One line in is one frame's
// accelerator output; one line out is one published report or pose.

type markerRecord struct {
	ID      int           `json:"id"`
	Corners [4][2]float64 `json:"corners"`
}

type frameRecord struct {
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Detections []detection.Detection `json:"detections"`
	Markers    []markerRecord        `json:"markers"`
}

func (fr frameRecord) observations() FrameObservations {
	obs := FrameObservations{
		Width:      fr.Width,
		Height:     fr.Height,
		Detections: fr.Detections,
	}
	for _, m := range fr.Markers {
		marker := aruco.Marker{ID: aruco.MarkerID(m.ID)}
		for i, c := range m.Corners {
			marker.Corners[i] = r2.Point{X: c[0], Y: c[1]}
		}
		obs.Markers = append(obs.Markers, marker)
	}
	return obs
}

type jsonSource struct {
	scanner *bufio.Scanner
	logger  golog.Logger
}

// NewJSONSource reads one frame's observations per JSON line. Malformed lines
// are logged and skipped rather than ending the stream; only reader errors and
// end of input are terminal.
func NewJSONSource(r io.Reader, logger golog.Logger) Source {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	return &jsonSource{scanner: scanner, logger: logger}
}

func (s *jsonSource) Next(ctx context.Context) (FrameObservations, error) {
	for {
		if ctx.Err() != nil {
			return FrameObservations{}, ctx.Err()
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return FrameObservations{}, errors.Wrap(err, "reading frame stream")
			}
			return FrameObservations{}, io.EOF
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frame frameRecord
		if err := json.Unmarshal(line, &frame); err != nil {
			s.logger.Warnw("skipping malformed frame record", "error", err)
			continue
		}
		return frame.observations(), nil
	}
}

type reportRecord struct {
	Type        string        `json:"type"`
	ID          int           `json:"id"`
	Corners     [4][2]float64 `json:"corners"`
	WidthRatio  float64       `json:"width_ratio"`
	HeightRatio float64       `json:"height_ratio"`
}

type poseRecord struct {
	Type        string     `json:"type"`
	ID          int        `json:"id"`
	FrameID     string     `json:"frame_id"`
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"` // x, y, z, w
}

// A JSONEmitter writes published reports and poses as JSON lines. It
// implements both ReportSink and PoseSink and is safe for concurrent use.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter returns a JSONEmitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w)}
}

// PublishReport writes one stabilized target report.
func (e *JSONEmitter) PublishReport(ctx context.Context, report stabilize.Report) error {
	rec := reportRecord{
		Type:        "object_report",
		ID:          int(report.Target),
		WidthRatio:  report.WidthRatio,
		HeightRatio: report.HeightRatio,
	}
	for i, c := range report.Corners {
		rec.Corners[i] = [2]float64{c.X, c.Y}
	}
	return e.encode(rec)
}

// PublishPose writes one per-frame marker pose.
func (e *JSONEmitter) PublishPose(ctx context.Context, pose aruco.MarkerPose) error {
	q := pose.Pose.Orientation
	rec := poseRecord{
		Type:        "marker_pose",
		ID:          int(pose.ID),
		FrameID:     pose.FrameID,
		Translation: [3]float64{pose.Pose.Point.X, pose.Pose.Point.Y, pose.Pose.Point.Z},
		Rotation:    [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real},
	}
	return e.encode(rec)
}

func (e *JSONEmitter) encode(rec interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(rec)
}
