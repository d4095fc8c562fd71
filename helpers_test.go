package liftline

import (
	"math"

	"github.com/go-kit/log"
	"gonum.org/v1/gonum/spatial/r3"
)

// rectangularWing spans z from -span/2 to span/2 with the chord pitched to the given angle of
// attack for a flow along +x.
func rectangularWing(span, chord, alpha float64) WingBuilder {
	c := RotateAroundAxis(r3.Vec{X: chord}, -alpha, r3.Vec{Z: 1})
	return WingBuilder{
		SectionPoints: []r3.Vec{{Z: -span / 2}, {Z: span / 2}},
		ChordVectors:  []r3.Vec{c, c},
		Model:         NewFoil(),
	}
}

// ellipticWing is an elliptic planform of the given aspect ratio with a unit root chord. The tip
// chords are kept small but not zero.
func ellipticWing(aspectRatio, alpha float64, nPoints int) (WingBuilder, float64) {
	span := aspectRatio * math.Pi / 4
	wb := WingBuilder{Model: NewFoil()}
	for k := 0; k < nPoints; k++ {
		theta := math.Pi * float64(k) / float64(nPoints-1)
		chord := math.Max(math.Sin(theta), 1e-3)
		wb.SectionPoints = append(wb.SectionPoints, r3.Vec{Z: -span / 2 * math.Cos(theta)})
		wb.ChordVectors = append(wb.ChordVectors, RotateAroundAxis(r3.Vec{X: chord}, -alpha, r3.Vec{Z: 1}))
	}
	return wb, span
}

func uniformFlow(n int, u r3.Vec) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = u
	}
	return out
}

func quietSimulation(model *LineForceModelBuilder, mode SimulationMode) *SimulationBuilder {
	b := NewSimulationBuilder("test", model, mode)
	b.Logger = log.NewNopLogger()
	return b
}

func mustBuild(b *LineForceModelBuilder) *LineForceModel {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
