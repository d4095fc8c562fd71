package liftline

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// bracket returns the index i such that xs[i] <= x < xs[i+1] and the fractional position of x in
// that interval. Values outside the data are clamped to the end points.
func bracket(x float64, xs []float64) (int, float64) {
	n := len(xs)
	if n < 2 || x <= xs[0] {
		return 0, 0
	}
	if x >= xs[n-1] {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		if i == n-1 {
			return n - 2, 1
		}
		return i, 0
	}
	i--
	return i, (x - xs[i]) / (xs[i+1] - xs[i])
}

// LinearInterpolation interpolates ys at x. xs must be sorted in increasing order.
func LinearInterpolation(x float64, xs, ys []float64) float64 {
	switch len(ys) {
	case 0:
		return 0
	case 1:
		return ys[0]
	}
	i, f := bracket(x, xs)
	return ys[i] + f*(ys[i+1]-ys[i])
}

func interpolateVec(x float64, xs []float64, ys []r3.Vec) r3.Vec {
	switch len(ys) {
	case 0:
		return r3.Vec{}
	case 1:
		return ys[0]
	}
	i, f := bracket(x, xs)
	return r3.Add(ys[i], r3.Scale(f, r3.Sub(ys[i+1], ys[i])))
}
