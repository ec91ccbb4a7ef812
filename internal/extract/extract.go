package extract

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/trace"
)

// Semantic joint names emitted by the extractor.
const (
	JointWrist = "wrist"
)

// finger describes the landmark indices and derived-DOF ratio of one finger.
type finger struct {
	name     string
	mcp      int
	tipRatio float64 // tip curl as a fraction of DIP curl
}

// fingers are the four non-thumb fingers. The tip DOF has no landmark of its
// own, so it is derived from the DIP curl with a per-finger fraction.
var fingers = []finger{
	{name: "index", mcp: landmark.IndexMCP, tipRatio: 0.67},
	{name: "middle", mcp: landmark.MiddleMCP, tipRatio: 0.5},
	{name: "ring", mcp: landmark.RingMCP, tipRatio: 0.7},
	{name: "pinky", mcp: landmark.PinkyMCP, tipRatio: 0.8},
}

// Config holds configuration options for angle extraction.
type Config struct {
	// WristAxes restricts which wrist Euler components are reported.
	// Defaults to all three.
	WristAxes Axes

	// ThumbRollGate is the minimum thumb yaw (radians) below which roll is
	// reported as zero; roll is unreliable when the thumb is not abducted.
	ThumbRollGate float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		WristAxes:     HasPitch | HasYaw | HasRoll,
		ThumbRollGate: 30 * math.Pi / 180,
	}
}

// Extractor converts a hand frame into per-joint angles.
type Extractor struct {
	cfg Config
	tr  trace.Tracer
}

// New creates an Extractor with the given configuration.
func New(cfg Config, tr trace.Tracer) *Extractor {
	if cfg.WristAxes == 0 {
		cfg.WristAxes = HasPitch | HasYaw | HasRoll
	}
	if cfg.ThumbRollGate == 0 {
		cfg.ThumbRollGate = 30 * math.Pi / 180
	}
	if tr == nil {
		tr = trace.Nop()
	}
	return &Extractor{cfg: cfg, tr: tr}
}

// handBasis is the shared per-frame palm geometry: forward (wrist to middle
// MCP), right (pinky MCP to index MCP), and the palm normal completing the
// right-handed frame.
type handBasis struct {
	forward r3.Vec
	right   r3.Vec
	normal  r3.Vec
}

func vec(p landmark.Point3D) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// basisOf computes the palm basis once per frame. The columns (right,
// forward, normal) form a proper rotation: normal = right x forward.
// Degenerate cross products fall back to a secondary reference so the
// basis never carries NaN.
func basisOf(f *landmark.HandFrame) handBasis {
	wrist := vec(f.Points[landmark.Wrist])
	forward := mathx.SafeUnit(r3.Sub(vec(f.Points[landmark.MiddleMCP]), wrist), r3.Vec{Y: -1})
	right := mathx.SafeUnit(r3.Sub(vec(f.Points[landmark.IndexMCP]), vec(f.Points[landmark.PinkyMCP])), r3.Vec{X: 1})
	normal := mathx.SafeUnit(r3.Cross(right, forward), r3.Vec{Z: -1})
	// Re-orthogonalize right against forward.
	right = mathx.SafeUnit(r3.Cross(forward, normal), right)
	return handBasis{forward: forward, right: right, normal: normal}
}

// Extract computes the full set of joint angles for one hand frame.
// The reference up direction (wrist to middle MCP) is computed once and
// shared by every joint of the hand.
func (e *Extractor) Extract(f *landmark.HandFrame) HandAngles {
	if f == nil {
		return HandAngles{}
	}

	basis := basisOf(f)
	angles := make(HandAngles, 17)

	for _, fg := range fingers {
		e.extractFinger(f, basis, fg, angles)
	}
	e.extractThumb(f, basis, angles)
	angles[JointWrist] = e.wristAngle(f, basis)

	return angles
}

// curl computes the flexion at mid from the landmark triple (base, mid, tip):
// pi minus the interior angle, clamped so a straight segment reads zero.
func curl(base, mid, tip r3.Vec) float64 {
	c := math.Pi - mathx.AngleBetween(r3.Sub(base, mid), r3.Sub(tip, mid))
	if c < 0 {
		return 0
	}
	return c
}

// multiAxis computes pitch/yaw/roll at mid for the bone pair around it.
// Pitch is the flexion magnitude, yaw the lateral deviation against the
// shared reference up, roll a second cross-product construction.
func multiAxis(base, mid, tip r3.Vec, referenceUp r3.Vec, basis handBasis) Angle {
	boneIn := mathx.SafeUnit(r3.Sub(mid, base), basis.forward)
	boneOut := mathx.SafeUnit(r3.Sub(tip, mid), basis.forward)

	pitch := curl(base, mid, tip)

	lateral := mathx.SafeUnit(r3.Cross(boneIn, referenceUp), basis.right)
	yaw := math.Asin(mathx.Clamp(r3.Dot(boneOut, lateral), -1, 1))

	rollRef := mathx.SafeUnit(r3.Cross(lateral, boneOut), basis.normal)
	roll := math.Asin(mathx.Clamp(r3.Dot(referenceUp, rollRef), -1, 1))

	return Multi(pitch, yaw, roll)
}

// extractFinger fills the MCP/PIP/DIP/TIP entries for one finger.
func (e *Extractor) extractFinger(f *landmark.HandFrame, basis handBasis, fg finger, out HandAngles) {
	wrist := vec(f.Points[landmark.Wrist])
	mcp := vec(f.Points[fg.mcp])
	pip := vec(f.Points[fg.mcp+1])
	dip := vec(f.Points[fg.mcp+2])
	tip := vec(f.Points[fg.mcp+3])

	// MCP gets the full multi-axis treatment; referenceUp is the palm forward.
	out[fg.name+"_mcp"] = multiAxis(wrist, mcp, pip, basis.forward, basis)

	out[fg.name+"_pip"] = Scalar(curl(mcp, pip, dip))

	dipCurl := curl(pip, dip, tip)
	out[fg.name+"_dip"] = Scalar(dipCurl)

	// No landmark exists beyond the fingertip; derive the tip DOF.
	out[fg.name+"_tip"] = Scalar(fg.tipRatio * dipCurl)
}

// wristAngle builds the wrist orientation from the palm basis and reports
// it as Euler angles, mirrored for the left hand.
func (e *Extractor) wristAngle(f *landmark.HandFrame, basis handBasis) Angle {
	// Basis columns: x = palm right, y = palm forward, z = palm normal.
	yaw, pitch, roll := mathx.EulerZYX(basis.right, basis.forward, basis.normal)

	if f.Handedness == landmark.Left {
		// Mirrored basis: flexion and axial rotation flip sign.
		pitch = -pitch
		roll = -roll
	}

	a := Angle{Axes: e.cfg.WristAxes}
	if a.Axes.Has(AxisPitch) {
		a.Pitch = pitch
	}
	if a.Axes.Has(AxisYaw) {
		a.Yaw = yaw
	}
	if a.Axes.Has(AxisRoll) {
		a.Roll = roll
	}
	return a
}
