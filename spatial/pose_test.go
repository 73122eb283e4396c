package spatial

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func TestNewZeroPose(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point.Norm(), test.ShouldEqual, 0.0)
	test.That(t, p.Orientation, test.ShouldResemble, quat.Number{Real: 1})
}

func TestQuatFromRotationMatrixIdentity(t *testing.T) {
	eye := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	q, err := QuatFromRotationMatrix(eye)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, QuaternionAlmostEqual(q, quat.Number{Real: 1}, 1e-9), test.ShouldBeTrue)
}

func TestQuatFromRotationMatrixAxisRotations(t *testing.T) {
	h := math.Sqrt(2) / 2
	for _, tc := range []struct {
		name string
		r    *mat.Dense
		want quat.Number
	}{
		{
			"90 deg about z",
			mat.NewDense(3, 3, []float64{
				0, -1, 0,
				1, 0, 0,
				0, 0, 1,
			}),
			quat.Number{Real: h, Kmag: h},
		},
		{
			"90 deg about x",
			mat.NewDense(3, 3, []float64{
				1, 0, 0,
				0, 0, -1,
				0, 1, 0,
			}),
			quat.Number{Real: h, Imag: h},
		},
		{
			"180 deg about y",
			mat.NewDense(3, 3, []float64{
				-1, 0, 0,
				0, 1, 0,
				0, 0, -1,
			}),
			quat.Number{Jmag: 1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, err := QuatFromRotationMatrix(tc.r)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, QuaternionAlmostEqual(q, tc.want, 1e-9), test.ShouldBeTrue)
			test.That(t, Norm(q), test.ShouldAlmostEqual, 1.0, 1e-9)
		})
	}
}

func TestQuatFromRotationMatrixBadShape(t *testing.T) {
	_, err := QuatFromRotationMatrix(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "3x3")
}

func TestNormalize(t *testing.T) {
	q := Normalize(quat.Number{Real: 2, Imag: 0, Jmag: 0, Kmag: 0})
	test.That(t, q, test.ShouldResemble, quat.Number{Real: 1})

	q = Normalize(quat.Number{})
	test.That(t, q, test.ShouldResemble, quat.Number{Real: 1})

	q = Normalize(quat.Number{Real: 1, Imag: 1, Jmag: 1, Kmag: 1})
	test.That(t, Norm(q), test.ShouldAlmostEqual, 1.0, 1e-9)
}
