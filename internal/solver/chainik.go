package solver

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/ik"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/retarget"
	"github.com/reatured/handvis/internal/trace"
)

// ChainTarget binds an IK chain to the landmark index its target bone
// follows.
type ChainTarget struct {
	Chain    string `json:"chain"`
	Landmark int    `json:"landmark"`
}

// FingertipTargets binds the conventional per-finger chain names to
// their fingertip landmarks, skipping chains the model does not define.
func FingertipTargets(spec *retarget.ModelSpec) []ChainTarget {
	tips := map[string]int{
		"thumb":  landmark.ThumbTip,
		"index":  landmark.IndexTip,
		"middle": landmark.MiddleTip,
		"ring":   landmark.RingTip,
		"pinky":  landmark.PinkyTip,
	}
	var targets []ChainTarget
	for _, c := range spec.Chains {
		if tip, ok := tips[c.Name]; ok {
			targets = append(targets, ChainTarget{Chain: c.Name, Landmark: tip})
		}
	}
	return targets
}

// ChainIK chases fingertip targets with a bounded CCD solve and reads
// the resulting bone rotations back out as scalar joint angles. It
// produces the same per-joint output the geometric path does, so both
// strategies feed one mapper.
type ChainIK struct {
	solver  *ik.Solver
	targets []ChainTarget
	tr      trace.Tracer
}

// NewChainIK builds a skeleton from the model and binds its chains to
// landmark targets.
func NewChainIK(spec *retarget.ModelSpec, cfg ik.Config, targets []ChainTarget, tr trace.Tracer) (*ChainIK, error) {
	skel, err := ik.BuildSkeleton(spec)
	if err != nil {
		return nil, fmt.Errorf("build skeleton: %w", err)
	}
	if tr == nil {
		tr = trace.Nop()
	}
	for _, t := range targets {
		if t.Landmark < 0 || t.Landmark >= landmark.NumLandmarks {
			return nil, fmt.Errorf("chain %q: landmark index %d out of range", t.Chain, t.Landmark)
		}
	}
	return &ChainIK{
		solver:  ik.NewSolver(skel, cfg, tr),
		targets: targets,
		tr:      tr,
	}, nil
}

// Solve normalizes the frame to a wrist-origin space and drives each
// bound chain toward its fingertip. Chain failures are isolated: the
// failed chain keeps its last valid pose and the rest still solve.
//
// Output keys are the model's joint names as written in the model
// file. For joints named per axis ("wrist_pitch", "wrist_yaw") those
// differ from the base-named groups the geometric solver emits, and a
// mapper built from the same model will not match them; route such
// output to the sink directly, or name the model's joints after their
// semantic groups.
func (c *ChainIK) Solve(frame *landmark.HandFrame, at time.Time) extract.HandAngles {
	_ = at
	angles := make(extract.HandAngles)
	if frame == nil {
		return angles
	}
	norm := frame.Normalize()
	for _, t := range c.targets {
		p := norm.Points[t.Landmark]
		if err := c.solver.Solve(t.Chain, r3.Vec{X: p.X, Y: p.Y, Z: p.Z}); err != nil {
			c.tr.Error("solver.chain", err, map[string]any{"chain": t.Chain})
		}
	}
	for joint, value := range c.solver.Skeleton().Angles() {
		angles[joint] = extract.Scalar(value)
	}
	return angles
}

// Reset returns every bone to its rest rotation. The skeleton is not
// side-keyed, so the side argument is ignored.
func (c *ChainIK) Reset(landmark.Side) {
	skel := c.solver.Skeleton()
	for joint := range skel.Angles() {
		if b := skel.Bone(joint); b != nil {
			b.Rotation = mathx.Identity()
		}
	}
}

var _ HandPoseSolver = (*ChainIK)(nil)
