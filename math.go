package liftline

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
)

// Deg2rad converts degrees to radians.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a / deg2rad
}

// unit returns the unit vector of a given vector, or the zero vector if it is too small.
func unit(a r3.Vec) r3.Vec {
	n := r3.Norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, a)
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// project returns the component of v along dir.
func project(v, dir r3.Vec) r3.Vec {
	d := unit(dir)
	return r3.Scale(r3.Dot(v, d), d)
}

// removeComponent returns v without its component along dir.
func removeComponent(v, dir r3.Vec) r3.Vec {
	return r3.Sub(v, project(v, dir))
}

// signedAngle returns the angle between from and to, positive when from·(to×axis) > 0.
func signedAngle(from, to, axis r3.Vec) float64 {
	nf := r3.Norm(from)
	nt := r3.Norm(to)
	if nf == 0 || nt == 0 {
		return 0
	}
	c := r3.Dot(from, to) / (nf * nt)
	angle := math.Acos(math.Max(-1, math.Min(1, c)))
	if r3.Dot(from, r3.Cross(to, axis)) < 0 {
		return -angle
	}
	return angle
}

// meanVec returns the arithmetic mean of vs.
func meanVec(vs []r3.Vec) r3.Vec {
	if len(vs) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, v := range vs {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(vs)), sum)
}

// vecsEqual returns whether two vectors are equal component-wise within tol.
func vecsEqual(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol) && scalar.EqualWithinAbs(a.Z, b.Z, tol)
}
