package liftline

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// secondOrderBackward returns the backward finite difference derivative of the history
// x[n-2], x[n-1], x[n].
func secondOrderBackward(older, old, current r3.Vec, dt float64) r3.Vec {
	return r3.Scale(1/(2*dt), r3.Add(r3.Sub(r3.Scale(3, current), r3.Scale(4, old)), older))
}

// motionHistory keeps the two previous control point positions and rotations of a line force
// model, or a velocity set directly by an external rigid body solver.
type motionHistory struct {
	ctrlPoints [2][]r3.Vec
	rotation   [2]r3.Vec
	updates    int

	prescribed      bool
	linearVelocity  r3.Vec
	angularVelocity r3.Vec
}

func newMotionHistory(n int) *motionHistory {
	return &motionHistory{ctrlPoints: [2][]r3.Vec{make([]r3.Vec, n), make([]r3.Vec, n)}}
}

// SetRigidBodyVelocity sets the linear and angular velocity of the collective motion directly.
// Motion velocities are no longer derived from the position history afterwards.
func (m *LineForceModel) SetRigidBodyVelocity(linear, angular r3.Vec) {
	m.motion.prescribed = true
	m.motion.linearVelocity = linear
	m.motion.angularVelocity = angular
}

// UsePositionHistory switches back to finite difference motion velocities.
func (m *LineForceModel) UsePositionHistory() {
	m.motion.prescribed = false
}

// MotionVelocities returns the velocity of each control point due to the motion of the model.
func (m *LineForceModel) MotionVelocities(dt float64) []r3.Vec {
	m.mustBeFresh()
	out := make([]r3.Vec, len(m.ctrlPoints))
	h := m.motion
	switch {
	case h.prescribed:
		for i, p := range m.ctrlPoints {
			out[i] = r3.Add(h.linearVelocity, r3.Cross(h.angularVelocity, r3.Sub(p, m.translation)))
		}
	case h.updates >= 2 && dt > 0:
		for i, p := range m.ctrlPoints {
			out[i] = secondOrderBackward(h.ctrlPoints[0][i], h.ctrlPoints[1][i], p, dt)
		}
	}
	return out
}

// AngularVelocity returns the angular velocity of the collective rotation.
func (m *LineForceModel) AngularVelocity(dt float64) r3.Vec {
	h := m.motion
	switch {
	case h.prescribed:
		return h.angularVelocity
	case h.updates >= 2 && dt > 0:
		return secondOrderBackward(h.rotation[0], h.rotation[1], m.rotation, dt)
	}
	return r3.Vec{}
}

// FeltCtrlPointsFreestream returns the freestream at the control points minus the motion velocity.
func (m *LineForceModel) FeltCtrlPointsFreestream(freestream []r3.Vec, dt float64) []r3.Vec {
	motion := m.MotionVelocities(dt)
	out := make([]r3.Vec, len(freestream))
	for i, u := range freestream {
		out[i] = r3.Sub(u, motion[i])
	}
	return out
}

// UpdateMotionHistory stores the current control points and rotation. It is called once per time
// step, after the forces have been computed.
func (m *LineForceModel) UpdateMotionHistory() {
	m.mustBeFresh()
	h := m.motion
	h.ctrlPoints[0], h.ctrlPoints[1] = h.ctrlPoints[1], h.ctrlPoints[0]
	copy(h.ctrlPoints[1], m.ctrlPoints)
	if h.updates == 0 {
		copy(h.ctrlPoints[0], m.ctrlPoints)
		h.rotation[0] = m.rotation
	} else {
		h.rotation[0] = h.rotation[1]
	}
	h.rotation[1] = m.rotation
	h.updates++
}

// flowHistory derives the flow acceleration at the control points from the solved velocities of
// previous steps.
type flowHistory struct {
	velocity [2][]r3.Vec
	updates  int
}

func (f *flowHistory) acceleration(current []r3.Vec, dt float64) []r3.Vec {
	out := make([]r3.Vec, len(current))
	if f.updates < 2 || dt <= 0 {
		return out
	}
	for i, u := range current {
		out[i] = secondOrderBackward(f.velocity[0][i], f.velocity[1][i], u, dt)
	}
	return out
}

func (f *flowHistory) update(current []r3.Vec) {
	f.velocity[0] = f.velocity[1]
	f.velocity[1] = append([]r3.Vec(nil), current...)
	if f.velocity[0] == nil {
		f.velocity[0] = f.velocity[1]
	}
	f.updates++
}
