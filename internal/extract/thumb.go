package extract

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
)

// thumbTipRatio derives the thumb tip DOF, which has no landmark beyond it,
// from the IP curl.
const thumbTipRatio = 0.8

// projectOntoPlane removes the component of v along the plane normal n.
func projectOntoPlane(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, n), n))
}

// extractThumb fills the thumb entries. The CMC yaw/roll use plane
// projections against the palm plane (wrist, index MCP, pinky MCP) rather
// than the generic lateral-axis construction: the thumb column sits outside
// the palm plane and the generic formula misreads opposition as flexion.
func (e *Extractor) extractThumb(f *landmark.HandFrame, basis handBasis, out HandAngles) {
	wrist := vec(f.Points[landmark.Wrist])
	cmc := vec(f.Points[landmark.ThumbCMC])
	mcp := vec(f.Points[landmark.ThumbMCP])
	ip := vec(f.Points[landmark.ThumbIP])
	tip := vec(f.Points[landmark.ThumbTip])

	// CMC pitch: flexion of the metacarpal against the wrist column.
	pitch := curl(wrist, cmc, mcp)

	// Yaw: signed angle, in the palm plane, between the projected thumb
	// metacarpal and the projected wrist-to-index direction.
	thumbDir := mathx.SafeUnit(r3.Sub(mcp, cmc), basis.right)
	indexDir := mathx.SafeUnit(r3.Sub(vec(f.Points[landmark.IndexMCP]), wrist), basis.forward)

	thumbProj := mathx.SafeUnit(projectOntoPlane(thumbDir, basis.normal), basis.right)
	indexProj := mathx.SafeUnit(projectOntoPlane(indexDir, basis.normal), basis.forward)

	yaw := math.Atan2(r3.Dot(r3.Cross(indexProj, thumbProj), basis.normal), r3.Dot(indexProj, thumbProj))

	// Roll: how far the distal thumb lifts out of the palm plane, via a
	// second cross-product construction. Below the abduction gate the
	// reading is noise, so it is defined as zero there.
	var roll float64
	if math.Abs(yaw) >= e.cfg.ThumbRollGate {
		distal := mathx.SafeUnit(r3.Sub(tip, ip), thumbDir)
		rollRef := mathx.SafeUnit(r3.Cross(basis.normal, thumbProj), basis.forward)
		roll = math.Asin(mathx.Clamp(r3.Dot(distal, rollRef), -1, 1))
	}

	out["thumb_cmc"] = Multi(pitch, yaw, roll)
	out["thumb_mcp"] = Scalar(curl(cmc, mcp, ip))

	ipCurl := curl(mcp, ip, tip)
	out["thumb_ip"] = Scalar(ipCurl)

	// The tip segment has no landmark beyond it; derive from the IP curl.
	out["thumb_tip"] = Scalar(thumbTipRatio * ipCurl)
}
