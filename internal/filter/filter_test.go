package filter

import (
	"math"
	"testing"
	"time"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
)

func scalarSet(name string, v float64) extract.HandAngles {
	return extract.HandAngles{name: extract.Scalar(v)}
}

func temporalOnly(maxVel float64) Config {
	return Config{
		Smoothing:     false,
		VelocityLimit: maxVel > 0,
		MaxVelocity:   maxVel,
	}
}

func TestFilter_FirstSamplePassesThrough(t *testing.T) {
	f := New(Config{Smoothing: true, Alpha: 0.3})
	out := f.Apply(landmark.Right, scalarSet("index_pip", 1.2), time.Unix(0, 0))
	if got := out["index_pip"].Pitch; got != 1.2 {
		t.Errorf("first sample = %f, want 1.2 unfiltered", got)
	}
}

func TestFilter_EMA(t *testing.T) {
	f := New(Config{Smoothing: true, Alpha: 0.25})
	t0 := time.Unix(0, 0)

	f.Apply(landmark.Right, scalarSet("index_pip", 1.0), t0)
	out := f.Apply(landmark.Right, scalarSet("index_pip", 2.0), t0.Add(33*time.Millisecond))

	want := 0.25*2.0 + 0.75*1.0
	if got := out["index_pip"].Pitch; math.Abs(got-want) > 1e-12 {
		t.Errorf("EMA output = %f, want %f", got, want)
	}
}

func TestFilter_VelocityLimit(t *testing.T) {
	f := New(temporalOnly(2.0)) // 2 rad/s
	t0 := time.Unix(0, 0)

	f.Apply(landmark.Right, scalarSet("index_pip", 0), t0)
	out := f.Apply(landmark.Right, scalarSet("index_pip", 1.0), t0.Add(100*time.Millisecond))

	// Max step is 2.0 * 0.1 = 0.2, same sign as the raw step.
	if got := out["index_pip"].Pitch; math.Abs(got-0.2) > 1e-12 {
		t.Errorf("velocity-limited output = %f, want 0.2", got)
	}

	// Negative direction.
	out = f.Apply(landmark.Right, scalarSet("index_pip", -3.0), t0.Add(200*time.Millisecond))
	if got := out["index_pip"].Pitch; math.Abs(got-0.0) > 1e-12 {
		t.Errorf("velocity-limited output = %f, want 0.0 (0.2 - 0.2)", got)
	}
}

func TestFilter_VelocityLimitStepBound(t *testing.T) {
	f := New(temporalOnly(5.0))
	t0 := time.Unix(0, 0)
	dt := 33 * time.Millisecond

	prev := 0.0
	f.Apply(landmark.Right, scalarSet("j", prev), t0)
	raws := []float64{2.0, -1.5, 0.4, 3.0, -2.2}
	for i, raw := range raws {
		at := t0.Add(time.Duration(i+1) * dt)
		out := f.Apply(landmark.Right, scalarSet("j", raw), at)
		got := out["j"].Pitch

		step := got - prev
		maxStep := 5.0 * dt.Seconds()
		if math.Abs(step) > maxStep+1e-12 {
			t.Errorf("sample %d: step %f exceeds max %f", i, step, maxStep)
		}
		rawStep := raw - prev
		if rawStep != 0 && step != 0 && math.Signbit(step) != math.Signbit(rawStep) {
			t.Errorf("sample %d: step sign flipped against raw input", i)
		}
		prev = got
	}
}

func TestFilter_NonPositiveDtReturnsPrevious(t *testing.T) {
	f := New(temporalOnly(10))
	t0 := time.Unix(10, 0)

	f.Apply(landmark.Right, scalarSet("j", 0.5), t0)
	out := f.Apply(landmark.Right, scalarSet("j", 0.9), t0) // duplicate timestamp
	if got := out["j"].Pitch; got != 0.5 {
		t.Errorf("duplicate timestamp output = %f, want previous 0.5", got)
	}

	out = f.Apply(landmark.Right, scalarSet("j", 0.9), t0.Add(-time.Second)) // out of order
	if got := out["j"].Pitch; got != 0.5 {
		t.Errorf("out-of-order timestamp output = %f, want previous 0.5", got)
	}
}

func TestFilter_ConstraintsAndCouplings(t *testing.T) {
	f := New(DefaultConfig())

	angles := extract.HandAngles{
		"index_mcp": extract.Scalar(3.0), // beyond 1.57 limit
		"index_pip": extract.Scalar(2.5), // beyond 1.75 limit
		"index_dip": extract.Scalar(0.1),
		"index_tip": extract.Scalar(0.9),
	}
	f.Constrain(angles)

	if got := angles["index_mcp"].Pitch; got != 1.57 {
		t.Errorf("index_mcp = %f, want clamped 1.57", got)
	}
	if got := angles["index_pip"].Pitch; got != 1.75 {
		t.Errorf("index_pip = %f, want clamped 1.75", got)
	}

	// Couplings inherit the already-clamped source values.
	wantDIP := 0.67 * 1.75
	if got := angles["index_dip"].Pitch; math.Abs(got-wantDIP) > 1e-12 {
		t.Errorf("index_dip = %f, want %f", got, wantDIP)
	}
	wantTIP := 0.5 * wantDIP
	if got := angles["index_tip"].Pitch; math.Abs(got-wantTIP) > 1e-12 {
		t.Errorf("index_tip = %f, want %f", got, wantTIP)
	}
}

func TestFilter_CouplingInvariantAllFingers(t *testing.T) {
	f := New(DefaultConfig())

	angles := make(extract.HandAngles)
	for _, fg := range []string{"index", "middle", "ring", "pinky"} {
		angles[fg+"_pip"] = extract.Scalar(1.2)
		angles[fg+"_dip"] = extract.Scalar(0.0)
		angles[fg+"_tip"] = extract.Scalar(0.0)
	}
	f.Constrain(angles)

	for _, fg := range []string{"index", "middle", "ring", "pinky"} {
		pip := angles[fg+"_pip"].Pitch
		dip := angles[fg+"_dip"].Pitch
		tip := angles[fg+"_tip"].Pitch
		if math.Abs(dip-0.67*pip) > 1e-12 {
			t.Errorf("%s: dip = %f, want %f", fg, dip, 0.67*pip)
		}
		if math.Abs(tip-0.5*dip) > 1e-12 {
			t.Errorf("%s: tip = %f, want %f", fg, tip, 0.5*dip)
		}
	}
}

func TestFilter_SidesIsolated(t *testing.T) {
	f := New(Config{Smoothing: true, Alpha: 0.5})
	t0 := time.Unix(0, 0)

	f.Apply(landmark.Right, scalarSet("j", 1.0), t0)
	out := f.Apply(landmark.Left, scalarSet("j", 3.0), t0.Add(time.Millisecond))

	// The left hand has no prior state; its first sample passes through.
	if got := out["j"].Pitch; got != 3.0 {
		t.Errorf("left hand inherited right-hand state: got %f, want 3.0", got)
	}
}

func TestFilter_Reset(t *testing.T) {
	f := New(Config{Smoothing: true, Alpha: 0.5})
	t0 := time.Unix(0, 0)

	f.Apply(landmark.Right, scalarSet("j", 1.0), t0)
	f.Reset()

	out := f.Apply(landmark.Right, scalarSet("j", 5.0), t0.Add(time.Second))
	if got := out["j"].Pitch; got != 5.0 {
		t.Errorf("post-reset sample = %f, want 5.0 unfiltered", got)
	}
}

func TestFilter_ResetSide(t *testing.T) {
	f := New(Config{Smoothing: true, Alpha: 0.5})
	t0 := time.Unix(0, 0)

	f.Apply(landmark.Right, scalarSet("j", 1.0), t0)
	f.Apply(landmark.Left, scalarSet("j", 1.0), t0)
	f.ResetSide(landmark.Left)

	t1 := t0.Add(time.Second)
	leftOut := f.Apply(landmark.Left, scalarSet("j", 5.0), t1)
	rightOut := f.Apply(landmark.Right, scalarSet("j", 5.0), t1)

	if got := leftOut["j"].Pitch; got != 5.0 {
		t.Errorf("left post-reset = %f, want 5.0", got)
	}
	if got := rightOut["j"].Pitch; got != 3.0 {
		t.Errorf("right = %f, want smoothed 3.0", got)
	}
}
