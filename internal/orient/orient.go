// Package orient builds per-joint local-frame quaternions from landmarks and
// decomposes rotations around arbitrary joint axes. Target models expose
// joint axes that are frequently not aligned to X/Y/Z, so the decomposition
// works for any non-zero axis.
package orient

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
)

func vec(p landmark.Point3D) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// JointQuat builds the local-frame rotation at mid from the landmark pair
// (mid, tip) and an up reference: forward is mid to tip, right is forward
// cross up-reference renormalized, up completes the frame. A degenerate
// cross product (forward parallel to the reference) falls back to the
// secondary reference.
func JointQuat(mid, tip landmark.Point3D, upRef, secondary r3.Vec) quat.Number {
	forward := mathx.SafeUnit(r3.Sub(vec(tip), vec(mid)), upRef)
	right := mathx.SafeUnit(r3.Cross(forward, upRef), secondary)
	// up completes the right-handed frame: right x up = forward.
	up := r3.Cross(forward, right)
	return mathx.QuatFromBasis(right, up, forward)
}

// WristQuat builds the wrist orientation from the palm basis: forward is
// wrist to middle MCP, right is pinky MCP to index MCP, the palm normal
// (right x forward) completes the right-handed frame.
func WristQuat(f *landmark.HandFrame) quat.Number {
	wrist := vec(f.Points[landmark.Wrist])
	forward := mathx.SafeUnit(r3.Sub(vec(f.Points[landmark.MiddleMCP]), wrist), r3.Vec{Y: -1})
	right := mathx.SafeUnit(
		r3.Sub(vec(f.Points[landmark.IndexMCP]), vec(f.Points[landmark.PinkyMCP])),
		r3.Vec{X: 1},
	)
	normal := mathx.SafeUnit(r3.Cross(right, forward), r3.Vec{Z: -1})
	right = mathx.SafeUnit(r3.Cross(forward, normal), right)
	return mathx.QuatFromBasis(right, forward, normal)
}

// HandQuats builds the full set of joint orientations for a hand frame:
// the wrist plus one quaternion per finger segment, keyed by the same
// semantic names the scalar extractor uses.
func HandQuats(f *landmark.HandFrame) map[string]quat.Number {
	if f == nil {
		return nil
	}

	wrist := vec(f.Points[landmark.Wrist])
	upRef := mathx.SafeUnit(r3.Sub(vec(f.Points[landmark.MiddleMCP]), wrist), r3.Vec{Y: -1})
	secondary := mathx.SafeUnit(
		r3.Sub(vec(f.Points[landmark.IndexMCP]), vec(f.Points[landmark.PinkyMCP])),
		r3.Vec{X: 1},
	)

	out := make(map[string]quat.Number, 16)
	out["wrist"] = WristQuat(f)

	segments := map[string][2]int{
		"thumb_cmc":  {landmark.ThumbCMC, landmark.ThumbMCP},
		"thumb_mcp":  {landmark.ThumbMCP, landmark.ThumbIP},
		"thumb_ip":   {landmark.ThumbIP, landmark.ThumbTip},
		"index_mcp":  {landmark.IndexMCP, landmark.IndexPIP},
		"index_pip":  {landmark.IndexPIP, landmark.IndexDIP},
		"index_dip":  {landmark.IndexDIP, landmark.IndexTip},
		"middle_mcp": {landmark.MiddleMCP, landmark.MiddlePIP},
		"middle_pip": {landmark.MiddlePIP, landmark.MiddleDIP},
		"middle_dip": {landmark.MiddleDIP, landmark.MiddleTip},
		"ring_mcp":   {landmark.RingMCP, landmark.RingPIP},
		"ring_pip":   {landmark.RingPIP, landmark.RingDIP},
		"ring_dip":   {landmark.RingDIP, landmark.RingTip},
		"pinky_mcp":  {landmark.PinkyMCP, landmark.PinkyPIP},
		"pinky_pip":  {landmark.PinkyPIP, landmark.PinkyDIP},
		"pinky_dip":  {landmark.PinkyDIP, landmark.PinkyTip},
	}
	for name, seg := range segments {
		out[name] = JointQuat(f.Points[seg[0]], f.Points[seg[1]], upRef, secondary)
	}

	return out
}
