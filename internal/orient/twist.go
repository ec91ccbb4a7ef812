package orient

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/mathx"
)

// Twist extracts the component of q that rotates around axis: the vector
// part of q is projected onto the axis and renormalized with the original
// real part. The identity is returned when q has no rotation around axis.
func Twist(q quat.Number, axis r3.Vec) quat.Number {
	n := mathx.SafeUnit(axis, r3.Vec{X: 1})
	proj := r3.Scale(r3.Dot(r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}, n), n)

	t := quat.Number{Real: q.Real, Imag: proj.X, Jmag: proj.Y, Kmag: proj.Z}
	if quat.Abs(t) < 1e-12 {
		// Pure swing exactly perpendicular to the axis.
		return mathx.Identity()
	}
	return mathx.Normalize(t)
}

// DecomposeAroundAxis returns the signed rotation of q around axis in
// radians, in (-pi, pi]. The sign follows the right-hand rule around the
// axis direction.
func DecomposeAroundAxis(q quat.Number, axis r3.Vec) float64 {
	n := mathx.SafeUnit(axis, r3.Vec{X: 1})
	t := Twist(q, n)

	// Canonicalize to the positive-real hemisphere so the magnitude stays
	// in [0, pi]; q and -q are the same rotation.
	if t.Real < 0 {
		t = quat.Scale(-1, t)
	}

	xyz := r3.Vec{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
	angle := 2 * math.Atan2(r3.Norm(xyz), t.Real)
	if r3.Dot(xyz, n) < 0 {
		angle = -angle
	}
	return angle
}

// RemoveAxisRotation removes a rotation of angle radians around axis from q,
// returning the swing remainder: swing = q * twist^-1.
func RemoveAxisRotation(q quat.Number, axis r3.Vec, angle float64) quat.Number {
	twist := mathx.AxisAngle(axis, angle)
	return mathx.Normalize(quat.Mul(q, quat.Conj(twist)))
}

// ChainAxis is one step of a sequential decomposition: a joint axis with
// its limit. Unbounded axes pass the full twist through.
type ChainAxis struct {
	Axis      r3.Vec
	Lower     float64
	Upper     float64
	Unbounded bool
}

// DecomposeChain runs q through the axes of a multi-joint base in order.
// Each step extracts the twist around its axis, clamps it to that joint's
// limit, and removes the clamped twist before the next step, so downstream
// axes only see the residual rotation. Clamping per step, not at the end,
// matches how the physical chain composes.
//
// The returned remainder is whatever rotation the chain could not express;
// composing remainder * twist(n) * ... * twist(1) reconstructs q exactly
// when no clamp engaged.
func DecomposeChain(q quat.Number, axes []ChainAxis) ([]float64, quat.Number) {
	out := make([]float64, len(axes))
	rest := q
	for i, ca := range axes {
		angle := DecomposeAroundAxis(rest, ca.Axis)
		if !ca.Unbounded {
			angle = mathx.Clamp(angle, ca.Lower, ca.Upper)
		}
		out[i] = angle
		rest = RemoveAxisRotation(rest, ca.Axis, angle)
	}
	return out, rest
}
