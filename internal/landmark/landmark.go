// Package landmark provides the hand landmark data model for the retargeting pipeline.
package landmark

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Side identifies which hand a frame or joint reading belongs to.
type Side string

const (
	// Left is the left hand.
	Left Side = "Left"
	// Right is the right hand.
	Right Side = "Right"
)

// Point3D represents a 3D point in normalized source space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandFrame represents one observation of a hand: the 21 landmarks plus
// the handedness label and the detector's confidence score.
type HandFrame struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Side                  `json:"handedness"`
	Score      float64               `json:"score"`
}

// FrameSet is everything one capture tick delivers: zero, one, or two hands.
type FrameSet struct {
	Hands       []HandFrame `json:"hands"`
	TimestampMs int64       `json:"timestampMs"`
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandFrame instance with normalized points.
func (h *HandFrame) Normalize() *HandFrame {
	if h == nil {
		return nil
	}

	normalized := &HandFrame{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	// Translate all points relative to the wrist
	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	// Scale so wrist to middle MCP is unit length
	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
