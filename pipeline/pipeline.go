// Package pipeline drives per-frame perception: object detections are
// classified, normalized, and stabilized into one-shot target reports, while
// fiducial marker corners are turned into camera-relative poses every frame.
// Newly seen identifiers are handed to a notifier that must never stall the
// frame loop.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/uavteam2/percept/aruco"
	"github.com/uavteam2/percept/detection"
	"github.com/uavteam2/percept/speech"
	"github.com/uavteam2/percept/stabilize"
	"github.com/uavteam2/percept/transform"
)

// FrameObservations is everything the accelerator produced for one frame: the
// frame dimensions, zero or more object detections, and zero or more decoded
// fiducial markers.
type FrameObservations struct {
	Width      int
	Height     int
	Detections []detection.Detection
	Markers    []aruco.Marker
}

// A Source yields per-frame observations from the upstream accelerator.
// Next returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (FrameObservations, error)
}

// A ReportSink receives each target's stabilized report exactly once.
type ReportSink interface {
	PublishReport(ctx context.Context, report stabilize.Report) error
}

// A PoseSink receives one marker pose per visible marker per frame.
type PoseSink interface {
	PublishPose(ctx context.Context, pose aruco.MarkerPose) error
}

// A Notifier receives batches of newly seen identifiers. Implementations must
// not block the caller.
type Notifier interface {
	Announce(batch []speech.Sighting)
}

// Config holds the pipeline tuning constants.
type Config struct {
	// Window is the number of consecutive observations averaged per target.
	// Defaults to stabilize.DefaultWindow.
	Window int
	// MinConfidence drops detections below this confidence before
	// classification.
	MinConfidence float64
	// MarkerSideLength is the physical side length of the fiducial markers in
	// meters. Defaults to 0.2.
	MarkerSideLength float64
	// StatsInterval is how many frames pass between frame-rate log lines.
	// Defaults to 100.
	StatsInterval int
	// Clock is used for frame-rate measurement; defaults to the wall clock.
	Clock clock.Clock
}

// DefaultMarkerSideLength is the physical marker side length in meters used
// when the config leaves it unset.
const DefaultMarkerSideLength = 0.2

const defaultStatsInterval = 100

// A Pipeline owns the per-frame processing state. It is driven by a single
// goroutine; only the notifier crosses a thread boundary.
type Pipeline struct {
	logger     golog.Logger
	filter     detection.Postprocessor
	stabilizer *stabilize.Stabilizer
	estimator  *aruco.PoseEstimator
	registry   *aruco.Registry
	notifier   Notifier
	reports    ReportSink
	poses      PoseSink

	clock         clock.Clock
	statsInterval int
	frameCount    int
	lastStatsTime time.Time
}

// New wires a Pipeline from its collaborators. The camera model calibrates
// marker pose recovery; reports and poses are the external publication
// boundary.
func New(
	cfg Config,
	model *transform.PinholeCameraModel,
	reports ReportSink,
	poses PoseSink,
	notifier Notifier,
	logger golog.Logger,
) (*Pipeline, error) {
	if reports == nil || poses == nil {
		return nil, errors.New("pipeline needs report and pose sinks")
	}
	if notifier == nil {
		return nil, errors.New("pipeline needs a notifier")
	}
	window := cfg.Window
	if window == 0 {
		window = stabilize.DefaultWindow
	}
	sideLength := cfg.MarkerSideLength
	if sideLength == 0 {
		sideLength = DefaultMarkerSideLength
	}
	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = defaultStatsInterval
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	stabilizer, err := stabilize.NewStabilizer(window, logger)
	if err != nil {
		return nil, err
	}
	estimator, err := aruco.NewPoseEstimator(model, sideLength)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		logger:        logger,
		filter:        detection.NewConfidenceFilter(cfg.MinConfidence),
		stabilizer:    stabilizer,
		estimator:     estimator,
		registry:      aruco.NewRegistry(),
		notifier:      notifier,
		reports:       reports,
		poses:         poses,
		clock:         clk,
		statsInterval: statsInterval,
		lastStatsTime: clk.Now(),
	}, nil
}

// ProcessFrame runs one frame's observations through the full pipeline. All
// per-item failures (unknown labels, degenerate marker corners) are contained
// and logged; only publication failures at the external boundary are returned,
// and even those never abort the rest of the frame.
func (p *Pipeline) ProcessFrame(ctx context.Context, obs FrameObservations) error {
	p.frameCount++
	defer p.logStats()

	if obs.Width <= 0 || obs.Height <= 0 {
		p.logger.Warnw("skipping frame with invalid dimensions", "width", obs.Width, "height", obs.Height)
		return nil
	}

	var errs error
	var batch []speech.Sighting

	for _, det := range p.filter(obs.Detections) {
		id, ok := detection.ClassifyLabel(det.Label)
		if !ok {
			p.logger.Warnw("this object identifier is unknown", "label", det.Label)
			continue
		}
		corners := detection.PixelCorners(det.Box, obs.Width, obs.Height)
		widthRatio, heightRatio := corners.SizeRatios(obs.Width, obs.Height)
		report, ready := p.stabilizer.Observe(id, corners, widthRatio, heightRatio)
		if !ready {
			continue
		}
		if err := p.reports.PublishReport(ctx, report); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "publishing report for target %d", id))
		}
		batch = append(batch, speech.Sighting{Kind: speech.SightingTarget, Label: id.Label()})
	}

	for _, m := range obs.Markers {
		pose, err := p.estimator.EstimatePose(m)
		if err != nil {
			p.logger.Warnw("pose estimation failed", "marker", int(m.ID), "error", err)
		} else if err := p.poses.PublishPose(ctx, pose); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "publishing pose for marker %d", m.ID))
		}
		if p.registry.FirstSighting(m.ID) {
			batch = append(batch, speech.Sighting{Kind: speech.SightingMarker, MarkerID: int(m.ID)})
		}
	}

	p.notifier.Announce(batch)
	return errs
}

// Run pulls frames from the source until it is exhausted or the context is
// canceled. Publication failures are logged and the loop continues; only
// source errors are terminal.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	for {
		obs, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("frame source exhausted; stopping")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "reading frame observations")
		}
		if err := p.ProcessFrame(ctx, obs); err != nil {
			p.logger.Errorw("failed to publish frame outputs", "error", err)
		}
	}
}

func (p *Pipeline) logStats() {
	if p.frameCount%p.statsInterval != 0 {
		return
	}
	now := p.clock.Now()
	elapsed := now.Sub(p.lastStatsTime).Seconds()
	p.lastStatsTime = now
	if elapsed <= 0 {
		return
	}
	p.logger.Infow("frame statistics",
		"frames", p.frameCount,
		"fps", float64(p.statsInterval)/elapsed,
	)
}
