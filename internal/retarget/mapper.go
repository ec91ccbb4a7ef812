package retarget

import (
	"math"
	"strings"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/trace"
)

// Sink receives joint commands. Target model adapters implement this; the
// adapter performs its own defensive clamp on top of the mapper's.
type Sink interface {
	SetJointValue(joint string, radians float64)
}

// Follower is a joint that mimics a dispatched joint: it receives
// multiplier*value + offset, clamped to its own limit when it has one.
type Follower struct {
	Joint      string
	Multiplier float64
	Offset     float64
	Limit      *Limit
}

// AxisBinding ties one axis of a semantic group to an underlying model
// joint with its limit and followers.
type AxisBinding struct {
	Joint     string
	Limit     *Limit
	Followers []Follower
}

// Group is a UI-facing semantic joint: one name covering up to three
// single-axis model joints.
type Group struct {
	Name string
	Axes map[extract.Axis]AxisBinding
}

// Mapper dispatches extracted angles onto a target model's native joints.
// The joint graph is resolved once at construction; per-frame dispatch is
// table lookups only.
type Mapper struct {
	joints map[string]*JointSpec
	groups map[string]*Group
	tr     trace.Tracer
}

// axisSuffixes maps the <base>_<axis> name suffixes to semantic axes.
var axisSuffixes = map[string]extract.Axis{
	"_pitch": extract.AxisPitch,
	"_yaw":   extract.AxisYaw,
	"_roll":  extract.AxisRoll,
}

// NewMapper resolves a model spec into semantic groups:
// fixed joints are discarded, <base>_<axis> joints are grouped per base,
// and the rest become singleton entries with the axis inferred from the
// dominant component of their local axis vector.
func NewMapper(spec *ModelSpec, tr trace.Tracer) *Mapper {
	if tr == nil {
		tr = trace.Nop()
	}
	m := &Mapper{
		joints: make(map[string]*JointSpec, len(spec.Joints)),
		groups: make(map[string]*Group),
		tr:     tr,
	}

	for i := range spec.Joints {
		j := &spec.Joints[i]
		if j.Type == JointFixed {
			continue
		}
		m.joints[j.Name] = j
	}

	// Followers index: master joint name -> joints that mimic it.
	followers := make(map[string][]Follower)
	for _, j := range m.joints {
		if j.Mimic == nil {
			continue
		}
		followers[j.Mimic.Joint] = append(followers[j.Mimic.Joint], Follower{
			Joint:      j.Name,
			Multiplier: j.Mimic.Multiplier,
			Offset:     j.Mimic.Offset,
			Limit:      j.Limit,
		})
	}

	for _, j := range m.joints {
		base, axis, grouped := splitAxisSuffix(j.Name)
		if !grouped {
			base, axis = j.Name, dominantAxis(j.Axis)
		}

		g, ok := m.groups[base]
		if !ok {
			g = &Group{Name: base, Axes: make(map[extract.Axis]AxisBinding)}
			m.groups[base] = g
		}
		g.Axes[axis] = AxisBinding{
			Joint:     j.Name,
			Limit:     j.Limit,
			Followers: followers[j.Name],
		}
	}

	return m
}

// splitAxisSuffix matches the <base>_<axis> naming pattern.
func splitAxisSuffix(name string) (base string, axis extract.Axis, ok bool) {
	for suffix, ax := range axisSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)], ax, true
		}
	}
	return "", "", false
}

// dominantAxis infers the semantic axis of an ungrouped joint from the
// largest component of its local axis vector. Ties default to pitch.
func dominantAxis(axis [3]float64) extract.Axis {
	ax, ay, az := math.Abs(axis[0]), math.Abs(axis[1]), math.Abs(axis[2])
	switch {
	case ay > ax && ay > az:
		return extract.AxisYaw
	case az > ax && az > ay:
		return extract.AxisRoll
	default:
		return extract.AxisPitch
	}
}

// Group returns the semantic entry for a name, or nil.
func (m *Mapper) Group(name string) *Group {
	return m.groups[name]
}

// Joint returns the resolved spec for an underlying joint name, or nil.
func (m *Mapper) Joint(name string) *JointSpec {
	return m.joints[name]
}

// Groups returns the semantic group names, for enumeration.
func (m *Mapper) Groups() []string {
	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	return names
}

// Dispatch routes one semantic angle onto the model. A scalar angle
// drives a singleton group's sole axis directly: the inferred axis label
// exists for grouping and the UI, not as a gate, so a single-DOF joint
// whose local axis points along Z still receives the scalar reading.
// Otherwise, for each axis present in both the angle and the group, the
// value is clamped to that axis's limit and set on the underlying joint;
// followers receive multiplier*clamped + offset, clamped to their own
// limit when they have one. Unknown semantic names are skipped, never
// fatal: one bad mapping must not abort the frame.
func (m *Mapper) Dispatch(name string, a extract.Angle, sink Sink) {
	g, ok := m.groups[name]
	if !ok {
		m.tr.Event("retarget.skip", map[string]any{"joint": name, "reason": "no semantic entry"})
		return
	}

	if a.IsScalar() && len(g.Axes) == 1 {
		for _, binding := range g.Axes {
			m.set(binding, a.Pitch, sink)
		}
		return
	}

	for axis, binding := range g.Axes {
		if !a.Axes.Has(axis) {
			continue
		}
		m.set(binding, a.Value(axis), sink)
	}
}

// set clamps a value to the binding's limit, commands the joint, and
// propagates it to the binding's followers.
func (m *Mapper) set(binding AxisBinding, v float64, sink Sink) {
	if binding.Limit != nil {
		v = mathx.Clamp(v, binding.Limit.Lower, binding.Limit.Upper)
	}
	sink.SetJointValue(binding.Joint, v)

	for _, f := range binding.Followers {
		mv := f.Multiplier*v + f.Offset
		if f.Limit != nil {
			mv = mathx.Clamp(mv, f.Limit.Lower, f.Limit.Upper)
		}
		sink.SetJointValue(f.Joint, mv)
	}
}

// DispatchAll routes a full hand's angle set.
func (m *Mapper) DispatchAll(angles extract.HandAngles, sink Sink) {
	for name, a := range angles {
		m.Dispatch(name, a, sink)
	}
}
