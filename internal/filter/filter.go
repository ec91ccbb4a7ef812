// Package filter applies temporal smoothing, velocity limiting, and
// anatomical constraints to extracted joint angles.
//
// Stage order for scalar angles is the system contract: smoothing, then
// velocity limiting, then constraints. The quaternion variant applies
// velocity limiting before smoothing; see QuatFilter.
package filter

import (
	"math"
	"time"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
)

// Key identifies per-joint filter state. Left and right hands never share
// state.
type Key struct {
	Side  landmark.Side
	Joint string
}

// Limit is an inclusive anatomical range in radians.
type Limit struct {
	Min float64
	Max float64
}

// Coupling overwrites a dependent joint as a fixed ratio of its source
// joint. The coupling pass runs strictly after the limit pass, so coupled
// joints inherit already-clamped source values, and the result is clamped
// to the dependent joint's own limit.
type Coupling struct {
	Source string
	Target string
	Ratio  float64
}

// Config holds the filter stages and their parameters. Each stage toggles
// independently.
type Config struct {
	// Smoothing enables the exponential moving average stage.
	Smoothing bool
	// Alpha is the EMA weight of the new sample, in (0, 1].
	Alpha float64

	// VelocityLimit enables the per-joint velocity clamp.
	VelocityLimit bool
	// MaxVelocity is the angular speed ceiling in radians per second.
	MaxVelocity float64

	// Constraints enables the anatomical limit and coupling pass.
	Constraints bool
	// Limits maps joint names to their anatomical range.
	Limits map[string]Limit
	// Couplings are applied in order after the limit pass.
	Couplings []Coupling
}

// DefaultConfig returns the stock anatomical configuration: all stages on,
// MediaPipe-hand joint limits, and the DIP/TIP couplings for the four
// non-thumb fingers.
func DefaultConfig() Config {
	limits := map[string]Limit{
		"wrist":     {Min: -1.0, Max: 1.0},
		"thumb_cmc": {Min: 0, Max: 1.2},
		"thumb_mcp": {Min: 0, Max: 1.0},
		"thumb_ip":  {Min: 0, Max: 1.4},
		"thumb_tip": {Min: 0, Max: 1.2},
	}
	for _, f := range []string{"index", "middle", "ring", "pinky"} {
		limits[f+"_mcp"] = Limit{Min: 0, Max: 1.57}
		limits[f+"_pip"] = Limit{Min: 0, Max: 1.75}
		limits[f+"_dip"] = Limit{Min: 0, Max: 1.57}
		limits[f+"_tip"] = Limit{Min: 0, Max: 1.0}
	}

	var couplings []Coupling
	for _, f := range []string{"index", "middle", "ring", "pinky"} {
		couplings = append(couplings,
			Coupling{Source: f + "_pip", Target: f + "_dip", Ratio: 0.67},
			Coupling{Source: f + "_dip", Target: f + "_tip", Ratio: 0.5},
		)
	}

	return Config{
		Smoothing:     true,
		Alpha:         0.4,
		VelocityLimit: true,
		MaxVelocity:   12.0,
		Constraints:   true,
		Limits:        limits,
		Couplings:     couplings,
	}
}

// state is the per-(side, joint) memory: the previous output and when it
// was produced. Created lazily on first observation.
type state struct {
	angle extract.Angle
	at    time.Time
}

// Filter is the scalar-domain motion filter. Not safe for concurrent use;
// the pipeline is frame-synchronous.
type Filter struct {
	cfg    Config
	states map[Key]*state
}

// New creates a Filter with the given configuration.
func New(cfg Config) *Filter {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.4
	}
	return &Filter{
		cfg:    cfg,
		states: make(map[Key]*state),
	}
}

// Reset clears all per-joint state, e.g. after tracking loss or an explicit
// user reset. The filter object stays usable.
func (f *Filter) Reset() {
	f.states = make(map[Key]*state)
}

// ResetSide clears state for one hand only.
func (f *Filter) ResetSide(side landmark.Side) {
	for k := range f.states {
		if k.Side == side {
			delete(f.states, k)
		}
	}
}

// Apply runs one hand's angle set through the enabled stages and updates
// the per-joint state. The first observation of a joint passes through the
// temporal stages unfiltered.
func (f *Filter) Apply(side landmark.Side, angles extract.HandAngles, at time.Time) extract.HandAngles {
	out := make(extract.HandAngles, len(angles))

	for name, a := range angles {
		key := Key{Side: side, Joint: name}
		st, seen := f.states[key]

		filtered := a
		if seen {
			if f.cfg.Smoothing {
				filtered = emaAngle(filtered, st.angle, f.cfg.Alpha)
			}
			if f.cfg.VelocityLimit {
				filtered = limitVelocity(filtered, st.angle, at.Sub(st.at), f.cfg.MaxVelocity)
			}
		}

		out[name] = filtered
		if seen {
			st.angle = filtered
			st.at = at
		} else {
			f.states[key] = &state{angle: filtered, at: at}
		}
	}

	if f.cfg.Constraints {
		f.Constrain(out)
	}

	// Constrained values become the reference for the next frame.
	for name, a := range out {
		if st, ok := f.states[Key{Side: side, Joint: name}]; ok {
			st.angle = a
		}
	}

	return out
}

// Constrain applies the anatomical limit pass followed by the coupling
// pass, in place. Exposed so callers can constrain angles that bypassed
// the temporal stages (e.g. calibration snapshots).
func (f *Filter) Constrain(angles extract.HandAngles) {
	// Limit pass: flexion (pitch) is clamped to the joint's range.
	for name, a := range angles {
		if lim, ok := f.cfg.Limits[name]; ok {
			a.Pitch = mathx.Clamp(a.Pitch, lim.Min, lim.Max)
			angles[name] = a
		}
	}

	// Coupling pass: strictly after limits so sources are already clamped.
	for _, c := range f.cfg.Couplings {
		src, ok := angles[c.Source]
		if !ok {
			continue
		}
		dst, ok := angles[c.Target]
		if !ok {
			continue
		}
		dst.Pitch = c.Ratio * src.Pitch
		if lim, ok := f.cfg.Limits[c.Target]; ok {
			dst.Pitch = mathx.Clamp(dst.Pitch, lim.Min, lim.Max)
		}
		angles[c.Target] = dst
	}
}

// emaAngle blends each present axis: alpha*new + (1-alpha)*previous.
func emaAngle(cur, prev extract.Angle, alpha float64) extract.Angle {
	out := cur
	for _, axis := range []extract.Axis{extract.AxisPitch, extract.AxisYaw, extract.AxisRoll} {
		if !cur.Axes.Has(axis) {
			continue
		}
		out = out.WithValue(axis, mathx.Lerp(prev.Value(axis), cur.Value(axis), alpha))
	}
	return out
}

// limitVelocity clamps the per-axis step so |new-prev|/dt never exceeds
// maxVel. A non-positive dt (duplicate or out-of-order timestamps) returns
// the previous value unchanged.
func limitVelocity(cur, prev extract.Angle, dt time.Duration, maxVel float64) extract.Angle {
	seconds := dt.Seconds()
	if seconds <= 0 {
		return prev
	}

	maxStep := maxVel * seconds
	out := cur
	for _, axis := range []extract.Axis{extract.AxisPitch, extract.AxisYaw, extract.AxisRoll} {
		if !cur.Axes.Has(axis) {
			continue
		}
		step := cur.Value(axis) - prev.Value(axis)
		if math.Abs(step) > maxStep {
			out = out.WithValue(axis, prev.Value(axis)+math.Copysign(maxStep, step))
		}
	}
	return out
}
