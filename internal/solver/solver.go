// Package solver exposes the two hand-pose strategies behind one
// interface: the geometric angle-extraction path used in production and
// the chain IK path that chases fingertip targets with a CCD solver.
package solver

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/filter"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/orient"
)

// HandPoseSolver turns one hand frame into semantic joint angles ready
// for mapper dispatch. Implementations must tolerate nil and degenerate
// frames by returning a neutral pose rather than failing the frame.
type HandPoseSolver interface {
	Solve(frame *landmark.HandFrame, at time.Time) extract.HandAngles
	Reset(side landmark.Side)
}

// Geometric is the primary strategy: per-joint angle extraction followed
// by motion filtering. Calibration offsets are the pipeline's concern so
// the pre-calibration pose stays observable. The wrist can optionally be
// routed through quaternion smoothing and sequential axis decomposition
// instead of the Euler extraction.
type Geometric struct {
	ex *extract.Extractor
	fl *filter.Filter

	qf        *filter.QuatFilter
	wristAxes []WristAxis
}

// WristAxis pairs one decomposition step with the semantic axis label
// its angle feeds.
type WristAxis struct {
	Chain orient.ChainAxis
	Label extract.Axis
}

// DefaultWristAxes peels pitch, yaw then roll from the palm
// orientation, bounded like the scalar wrist limits.
func DefaultWristAxes() []WristAxis {
	return []WristAxis{
		{Chain: orient.ChainAxis{Axis: r3.Vec{Z: 1}, Lower: -1.0, Upper: 1.0}, Label: extract.AxisPitch},
		{Chain: orient.ChainAxis{Axis: r3.Vec{Y: 1}, Lower: -1.0, Upper: 1.0}, Label: extract.AxisYaw},
		{Chain: orient.ChainAxis{Axis: r3.Vec{X: 1}, Unbounded: true}, Label: extract.AxisRoll},
	}
}

// NewGeometric assembles the extraction pipeline.
func NewGeometric(ex *extract.Extractor, fl *filter.Filter) *Geometric {
	return &Geometric{ex: ex, fl: fl}
}

// WithWristOrientation replaces the wrist's Euler extraction with a
// quaternion path: the palm orientation is smoothed by qf and then
// peeled into per-axis angles along the given chain.
func (g *Geometric) WithWristOrientation(qf *filter.QuatFilter, axes []WristAxis) *Geometric {
	g.qf = qf
	g.wristAxes = axes
	return g
}

// Solve runs extraction then filtering and returns the filtered,
// uncalibrated pose.
func (g *Geometric) Solve(frame *landmark.HandFrame, at time.Time) extract.HandAngles {
	angles := g.ex.Extract(frame)
	if len(angles) == 0 || frame == nil {
		return angles
	}
	angles = g.fl.Apply(frame.Handedness, angles, at)
	if g.qf != nil {
		angles["wrist"] = g.wristFromOrientation(frame, at)
	}
	return angles
}

func (g *Geometric) wristFromOrientation(frame *landmark.HandFrame, at time.Time) extract.Angle {
	q := orient.WristQuat(frame)
	q = g.qf.Apply(frame.Handedness, "wrist", q, at)

	chain := make([]orient.ChainAxis, len(g.wristAxes))
	for i, wa := range g.wristAxes {
		chain[i] = wa.Chain
	}
	values, _ := orient.DecomposeChain(q, chain)

	var a extract.Angle
	for i, wa := range g.wristAxes {
		a = a.WithValue(wa.Label, values[i])
	}
	return a
}

// Reset clears the filter history for one side.
func (g *Geometric) Reset(side landmark.Side) {
	g.fl.ResetSide(side)
	if g.qf != nil {
		g.qf.ResetSide(side)
	}
}

var _ HandPoseSolver = (*Geometric)(nil)
