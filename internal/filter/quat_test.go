package filter

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
)

func TestQuatFilter_FirstSamplePassesThrough(t *testing.T) {
	f := NewQuat(Config{Smoothing: true, Alpha: 0.3})
	q := mathx.AxisAngle(r3.Vec{Z: 1}, 0.8)

	out := f.Apply(landmark.Right, "wrist", q, time.Unix(0, 0))
	if mathx.AngleTo(out, q) > 1e-12 {
		t.Error("first sample should pass through unfiltered")
	}
}

func TestQuatFilter_SlerpSmoothing(t *testing.T) {
	f := NewQuat(Config{Smoothing: true, Alpha: 0.5})
	t0 := time.Unix(0, 0)

	a := mathx.AxisAngle(r3.Vec{Z: 1}, 0)
	b := mathx.AxisAngle(r3.Vec{Z: 1}, 1.0)

	f.Apply(landmark.Right, "wrist", a, t0)
	out := f.Apply(landmark.Right, "wrist", b, t0.Add(33*time.Millisecond))

	// Slerp halfway along the Z rotation.
	want := mathx.AxisAngle(r3.Vec{Z: 1}, 0.5)
	if mathx.AngleTo(out, want) > 1e-9 {
		t.Errorf("smoothed orientation off by %e rad", mathx.AngleTo(out, want))
	}
}

func TestQuatFilter_AngularVelocityLimit(t *testing.T) {
	f := NewQuat(Config{VelocityLimit: true, MaxVelocity: 1.0}) // 1 rad/s
	t0 := time.Unix(0, 0)

	a := mathx.AxisAngle(r3.Vec{X: 1}, 0)
	b := mathx.AxisAngle(r3.Vec{X: 1}, 2.0)

	f.Apply(landmark.Right, "wrist", a, t0)
	out := f.Apply(landmark.Right, "wrist", b, t0.Add(500*time.Millisecond))

	// Max step is 0.5 rad; the overshoot is corrected by partial SLERP.
	if d := mathx.AngleTo(out, a); math.Abs(d-0.5) > 1e-9 {
		t.Errorf("angular step = %f, want 0.5", d)
	}
}

func TestQuatFilter_NonPositiveDt(t *testing.T) {
	f := NewQuat(Config{VelocityLimit: true, MaxVelocity: 1.0})
	t0 := time.Unix(5, 0)

	a := mathx.AxisAngle(r3.Vec{Y: 1}, 0.2)
	b := mathx.AxisAngle(r3.Vec{Y: 1}, 1.2)

	f.Apply(landmark.Right, "wrist", a, t0)
	// The filter renormalizes stored orientations, so compare through
	// AngleTo with a tolerance above acos precision rather than expecting
	// component-exact values.
	out := f.Apply(landmark.Right, "wrist", b, t0)
	if mathx.AngleTo(out, a) > 1e-6 {
		t.Error("duplicate timestamp should return the previous orientation")
	}
}

func TestQuatFilter_ResetAndSideIsolation(t *testing.T) {
	f := NewQuat(Config{Smoothing: true, Alpha: 0.5})
	t0 := time.Unix(0, 0)

	a := mathx.AxisAngle(r3.Vec{Z: 1}, 0.0)
	b := mathx.AxisAngle(r3.Vec{Z: 1}, 1.0)

	f.Apply(landmark.Right, "wrist", a, t0)

	// Left hand state is independent: first left sample passes through.
	out := f.Apply(landmark.Left, "wrist", b, t0.Add(time.Millisecond))
	if mathx.AngleTo(out, b) > 1e-6 {
		t.Error("left hand inherited right-hand state")
	}

	f.Reset()
	out = f.Apply(landmark.Right, "wrist", b, t0.Add(time.Second))
	if mathx.AngleTo(out, b) > 1e-6 {
		t.Error("post-reset sample should pass through unfiltered")
	}
}
