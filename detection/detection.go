// Package detection contains the data model for object detections handed over by
// the onboard inference accelerator, plus the label table that maps detector
// labels onto the stable target identifiers used by the rest of the pipeline.
package detection

// A TargetID is the stable identifier for a recognized physical target class.
// Target identifiers live in a numeric space reserved above the fiducial marker
// identifiers (0-100) so downstream consumers can never confuse the two.
type TargetID int

const (
	// TargetBackpack is the backpack search target.
	TargetBackpack = TargetID(101)
	// TargetPerson is the person search target.
	TargetPerson = TargetID(102)
)

var labelToTarget = map[string]TargetID{
	"backpack": TargetBackpack,
	"person":   TargetPerson,
}

var targetToLabel = map[TargetID]string{}

func init() {
	for label, id := range labelToTarget {
		targetToLabel[id] = label
	}
}

// ClassifyLabel looks up the target identifier for a detector label. The second
// return is false for labels outside the known table; such detections are to be
// dropped by the caller.
func ClassifyLabel(label string) (TargetID, bool) {
	id, ok := labelToTarget[label]
	return id, ok
}

// Label returns the human readable detector label for the target, or the empty
// string if the identifier is unknown.
func (id TargetID) Label() string {
	return targetToLabel[id]
}

// A NormalizedBox is a bounding box with coordinates normalized to [0,1] of the
// frame dimensions. Values may stray slightly outside [0,1] due to detector
// noise and must be clipped before use in pixel space.
type NormalizedBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// A Detection is one detector output for one object instance in one frame. It
// is immutable once created.
type Detection struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Box        NormalizedBox `json:"bbox"`
}

// Postprocessor defines a function that filters/modifies an incoming slice of
// Detections.
type Postprocessor func([]Detection) []Detection

// NewConfidenceFilter returns a function that filters out detections below a
// certain confidence.
func NewConfidenceFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}
