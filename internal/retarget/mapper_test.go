package retarget

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/trace"
)

// recordingSink captures joint commands for assertions.
type recordingSink struct {
	values map[string]float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{values: make(map[string]float64)}
}

func (s *recordingSink) SetJointValue(joint string, radians float64) {
	s.values[joint] = radians
}

func testSpec(t *testing.T) *ModelSpec {
	t.Helper()
	spec := &ModelSpec{
		Name: "test-hand",
		Joints: []JointSpec{
			{Name: "wrist_pitch", Type: JointRevolute, Axis: [3]float64{1, 0, 0}, Limit: &Limit{Lower: -1, Upper: 1}},
			{Name: "wrist_yaw", Type: JointRevolute, Axis: [3]float64{0, 1, 0}, Limit: &Limit{Lower: -0.5, Upper: 0.5}},
			{Name: "wrist_roll", Type: JointRevolute, Axis: [3]float64{0, 0, 1}},
			{Name: "index_pip", Type: JointRevolute, Axis: [3]float64{0.9, 0.1, 0}, Limit: &Limit{Lower: 0, Upper: 1.75}},
			{Name: "index_dip", Type: JointRevolute, Axis: [3]float64{1, 0, 0}, Limit: &Limit{Lower: 0, Upper: 1.0},
				Mimic: &Mimic{Joint: "index_pip", Multiplier: 0.67}},
			{Name: "spread", Type: JointRevolute, Axis: [3]float64{0, 1, 0.2}},
			{Name: "mount", Type: JointFixed},
		},
	}
	if _, err := ParseModelSpec(mustJSON(t, spec)); err != nil {
		t.Fatalf("test spec does not validate: %v", err)
	}
	return spec
}

func mustJSON(t *testing.T, spec *ModelSpec) []byte {
	t.Helper()
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestNewMapper_GroupsAxisSuffixes(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())

	g := m.Group("wrist")
	if g == nil {
		t.Fatal("expected semantic group 'wrist'")
	}
	if len(g.Axes) != 3 {
		t.Fatalf("wrist group has %d axes, want 3", len(g.Axes))
	}
	if g.Axes[extract.AxisPitch].Joint != "wrist_pitch" {
		t.Errorf("pitch binds %q", g.Axes[extract.AxisPitch].Joint)
	}
	if g.Axes[extract.AxisYaw].Joint != "wrist_yaw" {
		t.Errorf("yaw binds %q", g.Axes[extract.AxisYaw].Joint)
	}
	if g.Axes[extract.AxisRoll].Joint != "wrist_roll" {
		t.Errorf("roll binds %q", g.Axes[extract.AxisRoll].Joint)
	}
}

func TestNewMapper_SingletonAxisInference(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())

	// index_pip: dominant |x| -> pitch.
	g := m.Group("index_pip")
	if g == nil {
		t.Fatal("expected singleton group 'index_pip'")
	}
	if _, ok := g.Axes[extract.AxisPitch]; !ok {
		t.Error("index_pip should infer the pitch axis")
	}

	// spread: dominant |y| -> yaw.
	g = m.Group("spread")
	if g == nil {
		t.Fatal("expected singleton group 'spread'")
	}
	if _, ok := g.Axes[extract.AxisYaw]; !ok {
		t.Error("spread should infer the yaw axis")
	}
}

func TestNewMapper_DropsFixedJoints(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	if m.Group("mount") != nil || m.Joint("mount") != nil {
		t.Error("fixed joints must be discarded")
	}
}

func TestDominantAxis_TieDefaultsToPitch(t *testing.T) {
	if got := dominantAxis([3]float64{0.5, 0.5, 0}); got != extract.AxisPitch {
		t.Errorf("tie resolved to %q, want pitch", got)
	}
	if got := dominantAxis([3]float64{0, 0, 1}); got != extract.AxisRoll {
		t.Errorf("|z| dominant resolved to %q, want roll", got)
	}
}

func TestDispatch_ClampsToAxisLimit(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	sink := newRecordingSink()

	m.Dispatch("wrist", extract.Multi(2.0, -3.0, 0.4), sink)

	if got := sink.values["wrist_pitch"]; got != 1.0 {
		t.Errorf("wrist_pitch = %f, want clamped 1.0", got)
	}
	if got := sink.values["wrist_yaw"]; got != -0.5 {
		t.Errorf("wrist_yaw = %f, want clamped -0.5", got)
	}
	// Roll is unbounded.
	if got := sink.values["wrist_roll"]; got != 0.4 {
		t.Errorf("wrist_roll = %f, want 0.4", got)
	}
}

func TestDispatch_ScalarDrivesSingletonSoleAxis(t *testing.T) {
	// Single-DOF joints frequently carry a Z local axis, which infers a
	// "roll" label; the scalar reading must still drive the joint.
	spec := &ModelSpec{
		Name: "z-axis-hand",
		Joints: []JointSpec{
			{Name: "index_pip", Type: JointRevolute, Axis: [3]float64{0, 0, 1}, Limit: &Limit{Lower: 0, Upper: 1.75}},
		},
	}
	m := NewMapper(spec, trace.Nop())
	sink := newRecordingSink()

	m.Dispatch("index_pip", extract.Scalar(1.2), sink)
	if got := sink.values["index_pip"]; got != 1.2 {
		t.Fatalf("index_pip = %f, want scalar 1.2 on the sole axis", got)
	}

	// The sole axis still clamps.
	m.Dispatch("index_pip", extract.Scalar(5.0), sink)
	if got := sink.values["index_pip"]; got != 1.75 {
		t.Errorf("index_pip = %f, want clamped 1.75", got)
	}
}

func TestDispatch_DefaultModelFingers(t *testing.T) {
	spec, err := DefaultModelSpec()
	if err != nil {
		t.Fatalf("DefaultModelSpec: %v", err)
	}
	m := NewMapper(spec, trace.Nop())
	sink := newRecordingSink()

	m.Dispatch("index_pip", extract.Scalar(1.2), sink)
	if got := sink.values["index_pip"]; got != 1.2 {
		t.Fatalf("index_pip = %f, want 1.2 commanded on the built-in model", got)
	}
	if got := sink.values["index_dip"]; math.Abs(got-0.67*1.2) > 1e-9 {
		t.Errorf("index_dip = %f, want mimic 0.67*1.2", got)
	}
}

func TestDispatch_MimicPropagation(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	sink := newRecordingSink()

	m.Dispatch("index_pip", extract.Scalar(1.2), sink)

	if got := sink.values["index_pip"]; got != 1.2 {
		t.Errorf("index_pip = %f, want 1.2", got)
	}
	want := 0.67 * 1.2
	if got := sink.values["index_dip"]; math.Abs(got-want) > 1e-12 {
		t.Errorf("index_dip = %f, want %f", got, want)
	}
}

func TestDispatch_MimicClampedToOwnLimit(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	sink := newRecordingSink()

	// pip clamps to 1.75; 0.67*1.75 = 1.1725 exceeds dip's 1.0 limit.
	m.Dispatch("index_pip", extract.Scalar(5.0), sink)

	if got := sink.values["index_pip"]; got != 1.75 {
		t.Errorf("index_pip = %f, want 1.75", got)
	}
	if got := sink.values["index_dip"]; got != 1.0 {
		t.Errorf("index_dip = %f, want clamped 1.0", got)
	}
}

func TestDispatch_UnknownNameSkipped(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	sink := newRecordingSink()

	m.Dispatch("nonexistent", extract.Scalar(1), sink)
	if len(sink.values) != 0 {
		t.Error("unknown semantic names must be skipped silently")
	}
}

func TestDispatch_AxisAbsentFromAngle(t *testing.T) {
	m := NewMapper(testSpec(t), trace.Nop())
	sink := newRecordingSink()

	// Scalar angle only carries pitch; yaw/roll joints stay untouched.
	m.Dispatch("wrist", extract.Scalar(0.3), sink)
	if _, ok := sink.values["wrist_yaw"]; ok {
		t.Error("yaw should not be set from a scalar angle")
	}
	if got := sink.values["wrist_pitch"]; got != 0.3 {
		t.Errorf("wrist_pitch = %f, want 0.3", got)
	}
}

func TestParseModelSpec_Validation(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"zero axis", `{"name":"m","joints":[{"name":"j","type":"revolute","axis":[0,0,0]}]}`},
		{"unknown mimic master", `{"name":"m","joints":[{"name":"j","type":"revolute","axis":[1,0,0],"mimic":{"joint":"ghost","multiplier":1}}]}`},
		{"self mimic", `{"name":"m","joints":[{"name":"j","type":"revolute","axis":[1,0,0],"mimic":{"joint":"j","multiplier":1}}]}`},
		{"duplicate joint", `{"name":"m","joints":[{"name":"j","type":"revolute","axis":[1,0,0]},{"name":"j","type":"revolute","axis":[1,0,0]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseModelSpec([]byte(tc.json)); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// Fixed joints may omit the axis.
	ok := `{"name":"m","joints":[{"name":"mount","type":"fixed"}]}`
	if _, err := ParseModelSpec([]byte(ok)); err != nil {
		t.Errorf("fixed joint without axis should parse: %v", err)
	}
}
