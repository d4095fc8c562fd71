package liftline

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RotationOrder is the order in which the collective rotation angles are applied.
type RotationOrder string

const (
	// XYZ rotates about x first, then y, then z.
	XYZ RotationOrder = "xyz"
	// ZYX rotates about z first, then y, then x.
	ZYX RotationOrder = "zyx"
)

// Validate checks that the order names each axis once.
func (o RotationOrder) Validate() error {
	s := strings.ToLower(string(o))
	if len(s) != 3 || !strings.Contains(s, "x") || !strings.Contains(s, "y") || !strings.Contains(s, "z") {
		return fmt.Errorf("%w: rotation order `%s`", ErrInvalidSetting, o)
	}
	return nil
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R2 rotation about the 2nd axis.
func R2(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, 0, -s, 0, 1, 0, s, 0, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v r3.Vec) r3.Vec {
	vVec := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var rVec mat.VecDense
	rVec.MulVec(m, vVec)
	return r3.Vec{X: rVec.AtVec(0), Y: rVec.AtVec(1), Z: rVec.AtVec(2)}
}

// RotationMatrix returns the matrix which rotates a vector by the angles in rot, applied in the
// given order. R1..R3 are frame rotations, hence the negated angles.
func RotationMatrix(rot r3.Vec, order RotationOrder) *mat.Dense {
	m := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if order == "" {
		order = XYZ
	}
	for _, axis := range strings.ToLower(string(order)) {
		var r *mat.Dense
		switch axis {
		case 'x':
			r = R1(-rot.X)
		case 'y':
			r = R2(-rot.Y)
		case 'z':
			r = R3(-rot.Z)
		default:
			continue
		}
		var tmp mat.Dense
		tmp.Mul(r, m)
		m.Copy(&tmp)
	}
	return m
}

// RotateVec rotates v by the angles in rot, applied in the given order.
func RotateVec(v, rot r3.Vec, order RotationOrder) r3.Vec {
	if rot == (r3.Vec{}) {
		return v
	}
	return MxV33(RotationMatrix(rot, order), v)
}

// InverseRotateVec undoes RotateVec.
func InverseRotateVec(v, rot r3.Vec, order RotationOrder) r3.Vec {
	if rot == (r3.Vec{}) {
		return v
	}
	return MxV33(RotationMatrix(rot, order).T(), v)
}

// RotateAroundAxis rotates v by angle around axis using the right hand rule.
func RotateAroundAxis(v r3.Vec, angle float64, axis r3.Vec) r3.Vec {
	u := unit(axis)
	if angle == 0 || u == (r3.Vec{}) {
		return v
	}
	return r3.NewRotation(angle, u).Rotate(v)
}
