package aruco

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/uavteam2/percept/spatial"
	"github.com/uavteam2/percept/transform"
)

// minQuadArea is the smallest pixel area a four-corner observation may span
// before it is considered degenerate for pose recovery.
const minQuadArea = 1.0

// A PoseEstimator solves the planar perspective-n-point problem for square
// fiducial markers of a known physical size, given the camera's calibration.
type PoseEstimator struct {
	model        *transform.PinholeCameraModel
	sideLength   float64
	objectPoints [4]r2.Point
}

// NewPoseEstimator returns a PoseEstimator for markers with sides of the given
// physical length in meters.
func NewPoseEstimator(model *transform.PinholeCameraModel, sideLength float64) (*PoseEstimator, error) {
	if model == nil {
		return nil, errors.New("pose estimator needs a camera model")
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	if sideLength <= 0 {
		return nil, errors.Errorf("marker side length must be positive, got %v", sideLength)
	}
	half := sideLength / 2.
	return &PoseEstimator{
		model:      model,
		sideLength: sideLength,
		// the marker's own frame: a square centered at the origin in the z=0
		// plane, corners in the same winding order as the image observations
		objectPoints: [4]r2.Point{
			{X: -half, Y: -half},
			{X: half, Y: -half},
			{X: half, Y: half},
			{X: -half, Y: half},
		},
	}, nil
}

// EstimatePose recovers the camera-relative rigid transform of one observed
// marker. Since all object points are coplanar, the 2D-3D correspondences
// determine a homography whose columns carry the rotation and translation:
// H ~ [r1 r2 t] up to scale. The homography comes from a direct linear
// transform over the four corners, and the rotation is orthonormalized with an
// SVD before conversion to a quaternion.
//
// Degenerate corner configurations (near-collinear, or numerically unsolvable)
// return an error; the caller skips the marker for that frame.
func (pe *PoseEstimator) EstimatePose(m Marker) (MarkerPose, error) {
	if area := quadArea(m.Corners); area < minQuadArea {
		return MarkerPose{}, errors.Errorf("marker %d corners are degenerate (area %.3f px)", m.ID, area)
	}

	// distorted pixels -> undistorted normalized camera coordinates
	var imagePoints [4]r2.Point
	for i, c := range m.Corners {
		pt, err := pe.model.UndistortPixel(c.X, c.Y)
		if err != nil {
			return MarkerPose{}, errors.Wrapf(err, "marker %d", m.ID)
		}
		imagePoints[i] = pt
	}

	h, err := homographyFromCorners(pe.objectPoints, imagePoints)
	if err != nil {
		return MarkerPose{}, errors.Wrapf(err, "marker %d", m.ID)
	}

	rot, trans, err := decomposeHomography(h)
	if err != nil {
		return MarkerPose{}, errors.Wrapf(err, "marker %d", m.ID)
	}

	q, err := spatial.QuatFromRotationMatrix(rot)
	if err != nil {
		return MarkerPose{}, errors.Wrapf(err, "marker %d", m.ID)
	}
	return MarkerPose{
		ID:      m.ID,
		Pose:    spatial.Pose{Point: trans, Orientation: q},
		FrameID: PoseFrame,
	}, nil
}

// quadArea is the shoelace area of the quadrilateral spanned by the corners.
func quadArea(c [4]r2.Point) float64 {
	var sum float64
	for i := range c {
		j := (i + 1) % 4
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(sum) / 2.
}

// homographyFromCorners computes the homography mapping planar object points
// to normalized image points with a direct linear transform: each
// correspondence contributes two rows to an 8x9 system whose null space is the
// flattened homography.
func homographyFromCorners(object, image [4]r2.Point) (*mat.Dense, error) {
	a := mat.NewDense(8, 9, nil)
	for i := range object {
		x, y := object[i].X, object[i].Y
		u, v := image[i].X, image[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y, -v})
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, errors.New("could not factorize correspondence matrix")
	}
	var v mat.Dense
	svd.VTo(&v)
	h := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, v.At(3*i+j, 8))
		}
	}
	return h, nil
}

// decomposeHomography splits H ~ [r1 r2 t] into a proper rotation matrix and a
// translation with the marker in front of the camera (positive z).
func decomposeHomography(h *mat.Dense) (*mat.Dense, r3.Vector, error) {
	// the marker must sit in front of the camera; the DLT null vector's sign
	// is arbitrary, so fix it with the translation's z component
	if h.At(2, 2) < 0 {
		h.Scale(-1, h)
	}
	col := func(j int) r3.Vector {
		return r3.Vector{X: h.At(0, j), Y: h.At(1, j), Z: h.At(2, j)}
	}
	h1, h2, h3 := col(0), col(1), col(2)
	lambda := (h1.Norm() + h2.Norm()) / 2.
	if lambda < 1e-12 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, r3.Vector{}, errors.New("homography scale is not finite")
	}
	r1 := h1.Mul(1 / h1.Norm())
	r2v := h2.Mul(1 / h2.Norm())
	r3v := r1.Cross(r2v)

	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2v.X, r3v.X,
		r1.Y, r2v.Y, r3v.Y,
		r1.Z, r2v.Z, r3v.Z,
	})
	rot, err := nearestRotation(approx)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	return rot, h3.Mul(1 / lambda), nil
}

// nearestRotation projects a near-rotation matrix onto SO(3) via SVD.
func nearestRotation(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("could not factorize rotation estimate")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var rot mat.Dense
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		// flip the smallest singular direction to stay a proper rotation
		d := mat.NewDiagDense(3, []float64{1, 1, -1})
		var tmp mat.Dense
		tmp.Mul(&u, d)
		rot.Mul(&tmp, v.T())
	}
	return &rot, nil
}
