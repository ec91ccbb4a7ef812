// Package mathx provides the vector and quaternion helpers shared by the
// extraction, orientation, filtering, and IK packages.
package mathx

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Clamp restricts a value to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp performs linear interpolation between two values.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// SafeUnit returns v normalized, or fallback when v is degenerate
// (near-zero length). The fallback keeps NaN out of downstream math.
func SafeUnit(v, fallback r3.Vec) r3.Vec {
	if r3.Norm(v) < 1e-9 {
		return fallback
	}
	return r3.Unit(v)
}

// AngleBetween returns the unsigned angle between two vectors in radians.
// Uses atan2 of cross and dot, which stays accurate near 0 and pi.
func AngleBetween(a, b r3.Vec) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}

// Identity returns the identity rotation.
func Identity() quat.Number {
	return quat.Number{Real: 1}
}

// AxisAngle builds a unit quaternion rotating by angle radians around axis.
// The axis need not be normalized.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	u := SafeUnit(axis, r3.Vec{X: 1})
	s := math.Sin(angle / 2)
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: u.X * s,
		Jmag: u.Y * s,
		Kmag: u.Z * s,
	}
}

// Normalize returns q scaled to unit length. A degenerate quaternion
// becomes the identity rotation.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return Identity()
	}
	return quat.Scale(1/n, q)
}

// Rotate applies the rotation q to vector v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Dot returns the 4D inner product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// AngleTo returns the angular distance between two rotations in radians,
// in [0, pi].
func AngleTo(a, b quat.Number) float64 {
	d := math.Abs(Dot(Normalize(a), Normalize(b)))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Slerp spherically interpolates from a to b by t in [0, 1].
// The shorter arc is always taken.
func Slerp(a, b quat.Number, t float64) quat.Number {
	a = Normalize(a)
	b = Normalize(b)

	d := Dot(a, b)
	if d < 0 {
		b = quat.Scale(-1, b)
		d = -d
	}

	// Nearly parallel rotations: fall back to normalized lerp.
	if d > 0.9995 {
		return Normalize(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}

	theta := math.Acos(d)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// QuatFromBasis converts an orthonormal basis (the columns of a rotation
// matrix) to a unit quaternion. Shepperd's method: branch on the largest
// diagonal term to keep the divisor well away from zero.
func QuatFromBasis(x, y, z r3.Vec) quat.Number {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	tr := m00 + m11 + m22
	var q quat.Number
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{
			Real: s / 4,
			Imag: (m21 - m12) / s,
			Jmag: (m02 - m20) / s,
			Kmag: (m10 - m01) / s,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{
			Real: (m21 - m12) / s,
			Imag: s / 4,
			Jmag: (m01 + m10) / s,
			Kmag: (m02 + m20) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{
			Real: (m02 - m20) / s,
			Imag: (m01 + m10) / s,
			Jmag: s / 4,
			Kmag: (m12 + m21) / s,
		}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{
			Real: (m10 - m01) / s,
			Imag: (m02 + m20) / s,
			Jmag: (m12 + m21) / s,
			Kmag: s / 4,
		}
	}
	return Normalize(q)
}

// EulerZYX extracts yaw (Z), pitch (Y), roll (X) from the rotation whose
// matrix columns are x, y, z. Near gimbal lock (pitch at +-90 deg) yaw is
// reported as zero and roll absorbs the remaining rotation.
func EulerZYX(x, y, z r3.Vec) (yaw, pitch, roll float64) {
	r00, r10, r20 := x.X, x.Y, x.Z
	r11, r12 := y.Y, z.Y
	r21, r22 := y.Z, z.Z

	sy := math.Sqrt(r00*r00 + r10*r10)
	if sy < 1e-6 {
		roll = math.Atan2(-r12, r11)
		pitch = math.Atan2(-r20, sy)
		yaw = 0
		return yaw, pitch, roll
	}

	roll = math.Atan2(r21, r22)
	pitch = math.Atan2(-r20, sy)
	yaw = math.Atan2(r10, r00)
	return yaw, pitch, roll
}
