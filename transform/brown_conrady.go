package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// BrownConrady is the distortion model for simple lenses of narrow field easily
// modeled as a pinhole camera. Parameters follow the "plumb bob" ordering used
// by calibration tools: k1, k2, p1, p2, k3.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
	RadialK3     float64 `json:"rk3"`
}

// NewBrownConrady takes in a slice of floats in (k1, k2, p1, p2, k3) order and
// will fill missing values with 0.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	for i := len(inp); i < 5; i++ {
		inp = append(inp, 0.0)
	}
	return &BrownConrady{inp[0], inp[1], inp[2], inp[3], inp[4]}, nil
}

// Parameters returns the parameters of the distortion model as a list of
// floats in (k1, k2, p1, p2, k3) order.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// Transform applies the forward Brown-Conrady model to an undistorted
// normalized point, returning where the lens bends it on the image plane:
//
//	x_d = x_u*(1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u*(1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
func (bc *BrownConrady) Transform(pt r2.Point) r2.Point {
	if bc == nil {
		return pt
	}
	xu, yu := pt.X, pt.Y
	r2v := xu*xu + yu*yu
	r4 := r2v * r2v
	r6 := r4 * r2v
	radial := 1.0 + bc.RadialK1*r2v + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := xu*radial + 2*bc.TangentialP1*xu*yu + bc.TangentialP2*(r2v+2*xu*xu)
	yd := yu*radial + 2*bc.TangentialP2*xu*yu + bc.TangentialP1*(r2v+2*yu*yu)
	return r2.Point{X: xd, Y: yd}
}

// Undistort solves the forward model for the undistorted normalized point that
// would produce the given distorted observation, by fixed-point iteration
// starting from the observation itself.
func (bc *BrownConrady) Undistort(pt r2.Point) (r2.Point, error) {
	if bc == nil {
		return pt, nil
	}
	const (
		maxIterations = 20
		tolerance     = 1e-10
	)
	xu, yu := pt.X, pt.Y
	for i := 0; i < maxIterations; i++ {
		distorted := bc.Transform(r2.Point{X: xu, Y: yu})
		dx := distorted.X - pt.X
		dy := distorted.Y - pt.Y
		if math.Abs(dx) < tolerance && math.Abs(dy) < tolerance {
			return r2.Point{X: xu, Y: yu}, nil
		}
		xu -= dx
		yu -= dy
		if math.IsNaN(xu) || math.IsNaN(yu) || math.IsInf(xu, 0) || math.IsInf(yu, 0) {
			return r2.Point{}, errors.Errorf("undistortion diverged for point (%v, %v)", pt.X, pt.Y)
		}
	}
	return r2.Point{X: xu, Y: yu}, nil
}
