package ik

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/orient"
	"github.com/reatured/handvis/internal/trace"
)

// Config bounds the CCD solve.
type Config struct {
	// Iterations is the number of full passes over a chain. Values
	// outside [2, 10] are clamped at construction.
	Iterations int
	// MaxStepAngle caps a single corrective rotation, in radians.
	MaxStepAngle float64
	// Tolerance is the effector-to-target distance at which the solve
	// stops early.
	Tolerance float64
}

// DefaultConfig returns solver settings that converge on hand-scale
// chains without overshooting.
func DefaultConfig() Config {
	return Config{
		Iterations:   6,
		MaxStepAngle: 0.5,
		Tolerance:    1e-3,
	}
}

const (
	minIterations = 2
	maxIterations = 10
)

// Solver runs cyclic coordinate descent over a skeleton's chains. Each
// solve is followed by an axis-constraint pass and a mimic pass, in that
// order. A chain that diverges or produces a non-finite pose is rolled
// back to its pre-solve rotations.
type Solver struct {
	skel *Skeleton
	cfg  Config
	tr   trace.Tracer
}

// NewSolver wraps a skeleton with a bounded CCD solver.
func NewSolver(skel *Skeleton, cfg Config, tr trace.Tracer) *Solver {
	if cfg.Iterations < minIterations {
		cfg.Iterations = minIterations
	}
	if cfg.Iterations > maxIterations {
		cfg.Iterations = maxIterations
	}
	if cfg.MaxStepAngle <= 0 {
		cfg.MaxStepAngle = DefaultConfig().MaxStepAngle
	}
	if tr == nil {
		tr = trace.Nop()
	}
	return &Solver{skel: skel, cfg: cfg, tr: tr}
}

// Skeleton returns the skeleton the solver mutates.
func (s *Solver) Skeleton() *Skeleton {
	return s.skel
}

// Solve drives one chain's effector toward its target. Failures are
// isolated per chain: on divergence the chain's bones are restored to
// their last valid pose and an error is returned.
func (s *Solver) Solve(chainName string, target r3.Vec) error {
	c, ok := s.skel.chains[chainName]
	if !ok {
		return fmt.Errorf("unknown chain %q", chainName)
	}
	c.target.LocalPos = target

	snapshot := make([]quat.Number, len(c.bones))
	for i, b := range c.bones {
		snapshot[i] = b.Rotation
	}
	startPos, _ := c.effector.World()
	startDist := r3.Norm(r3.Sub(target, startPos))

	for iter := 0; iter < s.cfg.Iterations; iter++ {
		s.iterate(c, target)
		effPos, _ := c.effector.World()
		if r3.Norm(r3.Sub(target, effPos)) < s.cfg.Tolerance {
			break
		}
	}

	s.constrain(c)
	s.applyMimics(c)

	if err := s.validate(c, target, startDist); err != nil {
		for i, b := range c.bones {
			b.Rotation = snapshot[i]
		}
		s.tr.Error("ik.solve", err, map[string]any{"chain": chainName})
		return fmt.Errorf("chain %q: %w", chainName, err)
	}
	return nil
}

// SolveAll runs every chain against its current target position. The
// first error is returned but remaining chains still solve.
func (s *Solver) SolveAll() error {
	var firstErr error
	for name, c := range s.skel.chains {
		if err := s.Solve(name, c.target.LocalPos); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// iterate is one CCD pass, tip-most bone first.
func (s *Solver) iterate(c *chain, target r3.Vec) {
	for i := len(c.bones) - 1; i >= 0; i-- {
		b := c.bones[i]
		if b == c.effector {
			continue
		}
		bonePos, _ := b.World()
		effPos, _ := c.effector.World()

		toEff := r3.Sub(effPos, bonePos)
		toTgt := r3.Sub(target, bonePos)
		if r3.Norm(toEff) < 1e-9 || r3.Norm(toTgt) < 1e-9 {
			continue
		}

		angle := mathx.AngleBetween(toEff, toTgt)
		if angle < 1e-9 {
			continue
		}
		if angle > s.cfg.MaxStepAngle {
			angle = s.cfg.MaxStepAngle
		}
		cross := r3.Cross(toEff, toTgt)
		if r3.Norm(cross) < 1e-12 {
			continue
		}
		axis := r3.Unit(cross)

		// Corrective rotation is computed in world space; fold it into
		// the bone's local frame through the parent orientation.
		world := mathx.AxisAngle(axis, angle)
		pRot := mathx.Identity()
		if b.Parent != nil {
			_, pRot = b.Parent.World()
		}
		local := quat.Mul(quat.Conj(pRot), quat.Mul(world, pRot))
		b.Rotation = mathx.Normalize(quat.Mul(local, b.Rotation))
	}
}

// constrain clamps each chain bone's twist around its joint axis into
// the joint's limit range, leaving residual swing untouched.
func (s *Solver) constrain(c *chain) {
	for _, b := range c.bones {
		lim := b.Spec.Limit
		if lim == nil {
			continue
		}
		axis := b.Axis()
		angle := orient.DecomposeAroundAxis(b.Rotation, axis)
		clamped := mathx.Clamp(angle, lim.Lower, lim.Upper)
		if clamped == angle {
			continue
		}
		b.Rotation = mathx.Normalize(quat.Mul(b.Rotation, mathx.AxisAngle(axis, clamped-angle)))
	}
}

// applyMimics overwrites each mimic bone's axis rotation with
// multiplier*master + offset, clamped to the mimic bone's own limit.
func (s *Solver) applyMimics(c *chain) {
	for _, b := range s.skel.bones {
		m := b.Spec.Mimic
		if m == nil {
			continue
		}
		master := s.skel.bones[m.Joint]
		if master == nil {
			continue
		}
		value := m.Multiplier*DecomposeBone(master) + m.Offset
		if lim := b.Spec.Limit; lim != nil {
			value = mathx.Clamp(value, lim.Lower, lim.Upper)
		}
		axis := b.Axis()
		current := orient.DecomposeAroundAxis(b.Rotation, axis)
		stripped := orient.RemoveAxisRotation(b.Rotation, axis, current)
		b.Rotation = mathx.Normalize(quat.Mul(stripped, mathx.AxisAngle(axis, value)))
	}
}

func (s *Solver) validate(c *chain, target r3.Vec, startDist float64) error {
	for _, b := range c.bones {
		if !finiteQuat(b.Rotation) {
			return fmt.Errorf("non-finite rotation on bone %q", b.Name)
		}
	}
	effPos, _ := c.effector.World()
	dist := r3.Norm(r3.Sub(target, effPos))
	if !math.IsInf(startDist, 0) && dist > startDist*2+s.cfg.Tolerance {
		return fmt.Errorf("diverged: distance %.4f from initial %.4f", dist, startDist)
	}
	return nil
}

func finiteQuat(q quat.Number) bool {
	for _, v := range []float64{q.Real, q.Imag, q.Jmag, q.Kmag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
