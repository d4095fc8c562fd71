package vortex

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SymmetryCondition mirrors the vortex system about a coordinate plane through the origin. The
// image is only used when evaluating velocities and is never stored.
type SymmetryCondition uint8

const (
	// NoSymmetry disables the image system.
	NoSymmetry SymmetryCondition = iota
	// SymmetryX mirrors about the plane x = 0.
	SymmetryX
	// SymmetryY mirrors about the plane y = 0.
	SymmetryY
	// SymmetryZ mirrors about the plane z = 0.
	SymmetryZ
)

// ParseSymmetryCondition reads a symmetry condition from its configuration name.
func ParseSymmetryCondition(s string) (SymmetryCondition, error) {
	switch strings.ToLower(s) {
	case "", "none", "nosymmetry":
		return NoSymmetry, nil
	case "x":
		return SymmetryX, nil
	case "y":
		return SymmetryY, nil
	case "z":
		return SymmetryZ, nil
	}
	return NoSymmetry, fmt.Errorf("unknown symmetry condition `%s`", s)
}

func (s SymmetryCondition) String() string {
	switch s {
	case SymmetryX:
		return "x"
	case SymmetryY:
		return "y"
	case SymmetryZ:
		return "z"
	default:
		return "none"
	}
}

// Mirror returns the image of p.
func (s SymmetryCondition) Mirror(p r3.Vec) r3.Vec {
	switch s {
	case SymmetryX:
		p.X = -p.X
	case SymmetryY:
		p.Y = -p.Y
	case SymmetryZ:
		p.Z = -p.Z
	}
	return p
}

// Combine adds the contribution of the image system, given the velocity u at the query point and
// the velocity uMirror evaluated at the mirrored query point.
func (s SymmetryCondition) Combine(u, uMirror r3.Vec) r3.Vec {
	switch s {
	case SymmetryX:
		return r3.Vec{X: u.X - uMirror.X, Y: u.Y + uMirror.Y, Z: u.Z + uMirror.Z}
	case SymmetryY:
		return r3.Vec{X: u.X + uMirror.X, Y: u.Y - uMirror.Y, Z: u.Z + uMirror.Z}
	case SymmetryZ:
		return r3.Vec{X: u.X + uMirror.X, Y: u.Y + uMirror.Y, Z: u.Z - uMirror.Z}
	}
	return u
}
