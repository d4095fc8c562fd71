package vortex

import (
	"fmt"
	"strings"
)

// CoreKind selects how the viscous core length is computed.
type CoreKind uint8

const (
	// RelativeCore scales the core with the length of the bound vortex.
	RelativeCore CoreKind = iota + 1
	// AbsoluteCore uses a fixed length.
	AbsoluteCore
	// NoCore disables the regularization.
	NoCore
)

// DefaultRelativeCore is the default ratio between the core length and the bound vortex length.
const DefaultRelativeCore = 0.1

// ViscousCoreLength is the regularization policy of a vortex line.
type ViscousCoreLength struct {
	Kind  CoreKind
	Value float64
}

// DefaultViscousCoreLength returns a relative core of 10% of the bound vortex length.
func DefaultViscousCoreLength() ViscousCoreLength {
	return ViscousCoreLength{Kind: RelativeCore, Value: DefaultRelativeCore}
}

// Relative returns a core length proportional to the bound vortex length.
func Relative(ratio float64) ViscousCoreLength {
	return ViscousCoreLength{Kind: RelativeCore, Value: ratio}
}

// Absolute returns a fixed core length.
func Absolute(length float64) ViscousCoreLength {
	return ViscousCoreLength{Kind: AbsoluteCore, Value: length}
}

// Length returns the core length for a bound vortex of the given length.
func (v ViscousCoreLength) Length(boundLength float64) float64 {
	switch v.Kind {
	case RelativeCore:
		return v.Value * boundLength
	case AbsoluteCore:
		return v.Value
	default:
		return 0
	}
}

func (v ViscousCoreLength) String() string {
	switch v.Kind {
	case RelativeCore:
		return fmt.Sprintf("relative(%g)", v.Value)
	case AbsoluteCore:
		return fmt.Sprintf("absolute(%g)", v.Value)
	default:
		return "none"
	}
}

// ParseViscousCoreLength builds a core policy from its configuration name.
func ParseViscousCoreLength(kind string, value float64) (ViscousCoreLength, error) {
	switch strings.ToLower(kind) {
	case "", "relative":
		if value == 0 {
			value = DefaultRelativeCore
		}
		if value < 0 {
			return ViscousCoreLength{}, fmt.Errorf("negative relative viscous core %g", value)
		}
		return Relative(value), nil
	case "absolute":
		if value < 0 {
			return ViscousCoreLength{}, fmt.Errorf("negative absolute viscous core %g", value)
		}
		return Absolute(value), nil
	case "none", "noviscouscore":
		return ViscousCoreLength{Kind: NoCore}, nil
	}
	return ViscousCoreLength{}, fmt.Errorf("unknown viscous core length `%s`", kind)
}
