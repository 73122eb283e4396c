package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/uavteam2/percept/aruco"
	"github.com/uavteam2/percept/detection"
	"github.com/uavteam2/percept/spatial"
	"github.com/uavteam2/percept/stabilize"
)

func TestJSONSource(t *testing.T) {
	input := strings.Join([]string{
		`{"width":416,"height":416,"detections":[{"label":"backpack","confidence":0.91,` +
			`"bbox":{"xmin":0.4,"ymin":0.4,"xmax":0.6,"ymax":0.6}}]}`,
		``,
		`this is not json`,
		`{"width":416,"height":416,"markers":[{"id":7,"corners":[[270,190],[370,190],[370,290],[270,290]]}]}`,
	}, "\n")
	logger, logs := golog.NewObservedTestLogger(t)
	src := NewJSONSource(strings.NewReader(input), logger)
	ctx := context.Background()

	obs, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.Width, test.ShouldEqual, 416)
	test.That(t, obs.Detections, test.ShouldHaveLength, 1)
	test.That(t, obs.Detections[0].Label, test.ShouldEqual, "backpack")
	test.That(t, obs.Detections[0].Box.XMax, test.ShouldEqual, 0.6)

	// the blank and malformed lines are skipped, not terminal
	obs, err = src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.Markers, test.ShouldHaveLength, 1)
	test.That(t, obs.Markers[0].ID, test.ShouldEqual, aruco.MarkerID(7))
	test.That(t, obs.Markers[0].Corners[2], test.ShouldResemble, r2.Point{X: 370, Y: 290})
	test.That(t, logs.FilterMessageSnippet("malformed").Len(), test.ShouldEqual, 1)

	_, err = src.Next(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)
}

func TestJSONSourceCanceledContext(t *testing.T) {
	logger := golog.NewTestLogger(t)
	src := NewJSONSource(strings.NewReader(`{"width":1,"height":1}`), logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestJSONEmitter(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewJSONEmitter(&buf)
	ctx := context.Background()

	report := stabilize.Report{
		Target:      detection.TargetBackpack,
		Corners:     [4]r2.Point{{X: 166, Y: 166}, {X: 249, Y: 166}, {X: 249, Y: 249}, {X: 166, Y: 249}},
		WidthRatio:  0.2,
		HeightRatio: 0.2,
	}
	test.That(t, emitter.PublishReport(ctx, report), test.ShouldBeNil)

	pose := aruco.MarkerPose{
		ID:      7,
		FrameID: aruco.PoseFrame,
		Pose: spatial.Pose{
			Point:       r3.Vector{Z: 1.25},
			Orientation: quat.Number{Real: 1},
		},
	}
	test.That(t, emitter.PublishPose(ctx, pose), test.ShouldBeNil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)

	var rep reportRecord
	test.That(t, json.Unmarshal([]byte(lines[0]), &rep), test.ShouldBeNil)
	test.That(t, rep.Type, test.ShouldEqual, "object_report")
	test.That(t, rep.ID, test.ShouldEqual, 101)
	test.That(t, rep.Corners[1], test.ShouldResemble, [2]float64{249, 166})
	test.That(t, rep.WidthRatio, test.ShouldEqual, 0.2)

	var pr poseRecord
	test.That(t, json.Unmarshal([]byte(lines[1]), &pr), test.ShouldBeNil)
	test.That(t, pr.Type, test.ShouldEqual, "marker_pose")
	test.That(t, pr.ID, test.ShouldEqual, 7)
	test.That(t, pr.FrameID, test.ShouldEqual, "aruco_marker")
	test.That(t, pr.Translation, test.ShouldResemble, [3]float64{0, 0, 1.25})
	test.That(t, pr.Rotation, test.ShouldResemble, [4]float64{0, 0, 0, 1})
}

func TestRunThroughJSONBoundary(t *testing.T) {
	frames := make([]string, 0, 11)
	det := `{"label":"backpack","confidence":0.9,"bbox":{"xmin":0.4,"ymin":0.4,"xmax":0.6,"ymax":0.6}}`
	marker := `{"id":7,"corners":[[270,190],[370,190],[370,290],[270,290]]}`
	for i := 0; i < 11; i++ {
		frames = append(frames,
			`{"width":416,"height":416,"detections":[`+det+`],"markers":[`+marker+`]}`)
	}
	logger := golog.NewTestLogger(t)
	src := NewJSONSource(strings.NewReader(strings.Join(frames, "\n")), logger)

	var buf bytes.Buffer
	emitter := NewJSONEmitter(&buf)
	notifier := &fakeNotifier{}
	p, err := New(Config{}, testModel(), emitter, emitter, notifier, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Run(context.Background(), src), test.ShouldBeNil)

	var reports, poses int
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec struct {
			Type string `json:"type"`
		}
		test.That(t, json.Unmarshal([]byte(line), &rec), test.ShouldBeNil)
		switch rec.Type {
		case "object_report":
			reports++
		case "marker_pose":
			poses++
		}
	}
	// one stabilized report over eleven frames, one pose per frame
	test.That(t, reports, test.ShouldEqual, 1)
	test.That(t, poses, test.ShouldEqual, 11)
	// the marker announced once, the target once
	test.That(t, notifier.batches, test.ShouldHaveLength, 2)
}
