// Package extract computes per-joint angles from hand landmark frames.
package extract

// Axis identifies one rotational degree of freedom of a joint.
type Axis string

const (
	// AxisPitch is flexion/extension.
	AxisPitch Axis = "pitch"
	// AxisYaw is abduction/adduction.
	AxisYaw Axis = "yaw"
	// AxisRoll is axial rotation.
	AxisRoll Axis = "roll"
)

// Axes is a bitmask of the axes an Angle carries.
type Axes uint8

// Axis presence flags.
const (
	HasPitch Axes = 1 << iota
	HasYaw
	HasRoll
)

// Has reports whether the mask includes the given axis.
func (a Axes) Has(axis Axis) bool {
	switch axis {
	case AxisPitch:
		return a&HasPitch != 0
	case AxisYaw:
		return a&HasYaw != 0
	case AxisRoll:
		return a&HasRoll != 0
	}
	return false
}

// Angle is one joint's reading for a frame. A single-DOF joint carries only
// the pitch component; multi-DOF joints carry whichever axes are set in Axes.
// Values are radians.
type Angle struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw,omitempty"`
	Roll  float64 `json:"roll,omitempty"`
	Axes  Axes    `json:"axes"`
}

// Scalar builds a single-DOF angle.
func Scalar(v float64) Angle {
	return Angle{Pitch: v, Axes: HasPitch}
}

// Multi builds a three-DOF angle.
func Multi(pitch, yaw, roll float64) Angle {
	return Angle{Pitch: pitch, Yaw: yaw, Roll: roll, Axes: HasPitch | HasYaw | HasRoll}
}

// IsScalar reports whether the angle carries only the pitch component.
func (a Angle) IsScalar() bool {
	return a.Axes == HasPitch
}

// Value returns the component for the given axis.
func (a Angle) Value(axis Axis) float64 {
	switch axis {
	case AxisYaw:
		return a.Yaw
	case AxisRoll:
		return a.Roll
	default:
		return a.Pitch
	}
}

// WithValue returns a copy with the given axis component replaced and
// marked present in the axis mask.
func (a Angle) WithValue(axis Axis, v float64) Angle {
	switch axis {
	case AxisYaw:
		a.Yaw = v
		a.Axes |= HasYaw
	case AxisRoll:
		a.Roll = v
		a.Axes |= HasRoll
	default:
		a.Pitch = v
		a.Axes |= HasPitch
	}
	return a
}

// HandAngles maps semantic joint names to their readings for one hand.
type HandAngles map[string]Angle
