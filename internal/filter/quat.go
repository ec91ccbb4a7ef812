package filter

import (
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
)

// QuatFilter is the orientation-domain variant of Filter: SLERP replaces
// the linear EMA and the velocity limit is expressed as angular distance
// per second.
//
// Known deviation from the scalar contract: this path applies velocity
// limiting before smoothing. Both orderings shipped in the source system;
// unifying them silently would change observed motion, so the divergence
// is kept and documented here.
type QuatFilter struct {
	cfg    Config
	states map[Key]*quatState
}

type quatState struct {
	q  quat.Number
	at time.Time
}

// NewQuat creates a QuatFilter with the given configuration. The
// Constraints stage has no quaternion form and is ignored.
func NewQuat(cfg Config) *QuatFilter {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.4
	}
	return &QuatFilter{
		cfg:    cfg,
		states: make(map[Key]*quatState),
	}
}

// Reset clears all per-joint state.
func (f *QuatFilter) Reset() {
	f.states = make(map[Key]*quatState)
}

// ResetSide clears state for one hand only.
func (f *QuatFilter) ResetSide(side landmark.Side) {
	for k := range f.states {
		if k.Side == side {
			delete(f.states, k)
		}
	}
}

// Apply filters one joint orientation. The first observation passes
// through unfiltered.
func (f *QuatFilter) Apply(side landmark.Side, joint string, q quat.Number, at time.Time) quat.Number {
	key := Key{Side: side, Joint: joint}
	st, seen := f.states[key]
	if !seen {
		q = mathx.Normalize(q)
		f.states[key] = &quatState{q: q, at: at}
		return q
	}

	filtered := mathx.Normalize(q)

	if f.cfg.VelocityLimit {
		filtered = limitAngularVelocity(filtered, st.q, at.Sub(st.at), f.cfg.MaxVelocity)
	}
	if f.cfg.Smoothing {
		filtered = mathx.Slerp(st.q, filtered, f.cfg.Alpha)
	}

	st.q = filtered
	st.at = at
	return filtered
}

// ApplyAll filters a full set of joint orientations for one hand.
func (f *QuatFilter) ApplyAll(side landmark.Side, quats map[string]quat.Number, at time.Time) map[string]quat.Number {
	out := make(map[string]quat.Number, len(quats))
	for joint, q := range quats {
		out[joint] = f.Apply(side, joint, q, at)
	}
	return out
}

// limitAngularVelocity corrects overshoot with a partial SLERP toward the
// current orientation. A non-positive dt returns the previous orientation.
func limitAngularVelocity(cur, prev quat.Number, dt time.Duration, maxVel float64) quat.Number {
	seconds := dt.Seconds()
	if seconds <= 0 {
		return prev
	}

	dist := mathx.AngleTo(cur, prev)
	maxStep := maxVel * seconds
	if dist <= maxStep || dist == 0 {
		return cur
	}
	return mathx.Slerp(prev, cur, maxStep/dist)
}
