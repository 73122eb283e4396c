// Package aruco recovers 3D poses from fiducial marker corner observations and
// tracks which marker identifiers have been sighted before.
//
// Marker detection itself happens on the accelerator; this package starts from
// the decoded marker identifier and its four 2D image corners.
package aruco

import (
	"github.com/golang/geo/r2"

	"github.com/uavteam2/percept/spatial"
)

// PoseFrame is the child frame identifier attached to every published marker
// pose.
const PoseFrame = "aruco_marker"

// A MarkerID is the identifier decoded from a fiducial marker pattern. Marker
// identifiers are small integers (0-100 by convention), disjoint from the
// target identifier space.
type MarkerID int

// A Marker is one per-frame observation of a fiducial marker: its decoded
// identifier and four pixel-space corners in top-left, top-right, bottom-right,
// bottom-left order.
type Marker struct {
	ID      MarkerID    `json:"id"`
	Corners [4]r2.Point `json:"corners"`
}

// A MarkerPose is the camera-relative rigid transform recovered for one marker
// in one frame. Poses are recomputed and published every frame the marker is
// visible; they are never aggregated or deduplicated.
type MarkerPose struct {
	ID      MarkerID
	Pose    spatial.Pose
	FrameID string
}

// A Registry remembers which marker identifiers have been observed at least
// once during the process lifetime. It gates the notification path only; pose
// publication is unconditional. Owned by the frame-processing path; not safe
// for concurrent use.
type Registry struct {
	seen map[MarkerID]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{seen: map[MarkerID]bool{}}
}

// FirstSighting records the marker identifier and reports whether this is the
// first time it has been seen. It returns true exactly once per identifier.
func (r *Registry) FirstSighting(id MarkerID) bool {
	if r.seen[id] {
		return false
	}
	r.seen[id] = true
	return true
}

// Seen reports whether the marker identifier has been observed before.
func (r *Registry) Seen(id MarkerID) bool {
	return r.seen[id]
}
