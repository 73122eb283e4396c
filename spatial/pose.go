// Package spatial contains the minimal rigid-body math the perception pipeline
// needs: a camera-frame pose as a translation plus a unit quaternion, and
// conversion from a rotation matrix to that quaternion.
package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// A Pose is a rigid-body transform: a translation in meters and a rotation
// expressed as a unit quaternion.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns a pose with no translation and no rotation.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// QuatFromRotationMatrix converts a 3x3 rotation matrix to a unit quaternion
// using Shepperd's method, branching on the largest diagonal term for
// numerical stability.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func QuatFromRotationMatrix(r mat.Matrix) (quat.Number, error) {
	rows, cols := r.Dims()
	if rows != 3 || cols != 3 {
		return quat.Number{}, errors.Errorf("rotation matrix must be 3x3, got %dx%d", rows, cols)
	}
	tr := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)
	var q quat.Number
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1.0)
		q.Real = 0.25 * s
		q.Imag = (r.At(2, 1) - r.At(1, 2)) / s
		q.Jmag = (r.At(0, 2) - r.At(2, 0)) / s
		q.Kmag = (r.At(1, 0) - r.At(0, 1)) / s
	case r.At(0, 0) > r.At(1, 1) && r.At(0, 0) > r.At(2, 2):
		s := 2 * math.Sqrt(1.0+r.At(0, 0)-r.At(1, 1)-r.At(2, 2))
		q.Real = (r.At(2, 1) - r.At(1, 2)) / s
		q.Imag = 0.25 * s
		q.Jmag = (r.At(0, 1) + r.At(1, 0)) / s
		q.Kmag = (r.At(0, 2) + r.At(2, 0)) / s
	case r.At(1, 1) > r.At(2, 2):
		s := 2 * math.Sqrt(1.0+r.At(1, 1)-r.At(0, 0)-r.At(2, 2))
		q.Real = (r.At(0, 2) - r.At(2, 0)) / s
		q.Imag = (r.At(0, 1) + r.At(1, 0)) / s
		q.Jmag = 0.25 * s
		q.Kmag = (r.At(1, 2) + r.At(2, 1)) / s
	default:
		s := 2 * math.Sqrt(1.0+r.At(2, 2)-r.At(0, 0)-r.At(1, 1))
		q.Real = (r.At(1, 0) - r.At(0, 1)) / s
		q.Imag = (r.At(0, 2) + r.At(2, 0)) / s
		q.Jmag = (r.At(1, 2) + r.At(2, 1)) / s
		q.Kmag = 0.25 * s
	}
	return Normalize(q), nil
}

// Normalize scales a quaternion to unit norm.
func Normalize(q quat.Number) quat.Number {
	norm := Norm(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Norm returns the euclidean norm of the quaternion.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// QuaternionAlmostEqual compares two quaternions within a tolerance, treating q
// and -q as the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	diff := quat.Sub(a, b)
	sum := quat.Add(a, b)
	return Norm(diff) < tol || Norm(sum) < tol
}
