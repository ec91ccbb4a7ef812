// Package ik drives bone chains toward 3D target points with a bounded
// CCD solver, then enforces joint axis constraints and mimic couplings.
package ik

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/orient"
	"github.com/reatured/handvis/internal/retarget"
)

// Bone is one joint of the hierarchy. Rotation is the bone's mutable local
// pose; Spec carries the axis, limit and mimic resolved at build time.
type Bone struct {
	Name     string
	Parent   *Bone
	Children []*Bone
	LocalPos r3.Vec
	Rotation quat.Number
	Spec     *retarget.JointSpec
}

// Axis returns the bone's local joint axis.
func (b *Bone) Axis() r3.Vec {
	return r3.Vec{X: b.Spec.Axis[0], Y: b.Spec.Axis[1], Z: b.Spec.Axis[2]}
}

// World returns the bone's world position and orientation by walking up
// the parent chain.
func (b *Bone) World() (r3.Vec, quat.Number) {
	if b.Parent == nil {
		return b.LocalPos, b.Rotation
	}
	pPos, pRot := b.Parent.World()
	return r3.Add(pPos, mathx.Rotate(pRot, b.LocalPos)), mathx.Normalize(quat.Mul(pRot, b.Rotation))
}

// chain is a resolved IK chain: the ordered bones the solver may rotate,
// the effector whose position chases the target, and the virtual target
// bone.
type chain struct {
	name     string
	bones    []*Bone // root-most first
	effector *Bone
	target   *Bone
}

// Skeleton is a bone hierarchy built from a declarative model spec.
type Skeleton struct {
	bones  map[string]*Bone
	chains map[string]*chain
}

// BuildSkeleton resolves a model spec into a bone hierarchy. One bone is
// created per actuated joint; a joint's parent bone is the joint whose
// child link matches its parent link. Chains must name existing bones;
// their target bones are created as free (virtual) bones.
func BuildSkeleton(spec *retarget.ModelSpec) (*Skeleton, error) {
	s := &Skeleton{
		bones:  make(map[string]*Bone),
		chains: make(map[string]*chain),
	}

	// Index joints by their child link to resolve parentage.
	byChildLink := make(map[string]*Bone)
	for i := range spec.Joints {
		j := &spec.Joints[i]
		if j.Type == retarget.JointFixed {
			continue
		}
		b := &Bone{
			Name:     j.Name,
			LocalPos: r3.Vec{X: j.Origin[0], Y: j.Origin[1], Z: j.Origin[2]},
			Rotation: mathx.Identity(),
			Spec:     j,
		}
		s.bones[j.Name] = b
		if j.Child != "" {
			byChildLink[j.Child] = b
		}
	}

	for _, b := range s.bones {
		if parent, ok := byChildLink[b.Spec.Parent]; ok && parent != b {
			b.Parent = parent
			parent.Children = append(parent.Children, b)
		}
	}

	for _, cs := range spec.Chains {
		effector, ok := s.bones[cs.Effector]
		if !ok {
			return nil, fmt.Errorf("chain %q: unknown effector bone %q", cs.Name, cs.Effector)
		}
		c := &chain{
			name:     cs.Name,
			effector: effector,
			target:   &Bone{Name: cs.Target, Rotation: mathx.Identity()},
		}
		for _, link := range cs.Links {
			b, ok := s.bones[link]
			if !ok {
				return nil, fmt.Errorf("chain %q: unknown link bone %q", cs.Name, link)
			}
			c.bones = append(c.bones, b)
		}
		if len(c.bones) == 0 {
			return nil, fmt.Errorf("chain %q has no links", cs.Name)
		}
		s.chains[cs.Name] = c
	}

	return s, nil
}

// Bone returns a bone by name, or nil.
func (s *Skeleton) Bone(name string) *Bone {
	return s.bones[name]
}

// Chains returns the chain names.
func (s *Skeleton) Chains() []string {
	names := make([]string, 0, len(s.chains))
	for name := range s.chains {
		names = append(names, name)
	}
	return names
}

// SetTarget moves a chain's virtual target bone to a world position.
func (s *Skeleton) SetTarget(chainName string, pos r3.Vec) error {
	c, ok := s.chains[chainName]
	if !ok {
		return fmt.Errorf("unknown chain %q", chainName)
	}
	c.target.LocalPos = pos
	return nil
}

// JointAngles extracts each bone's current rotation around its joint axis.
// This is the same output contract the semantic mapper consumes.
type JointAngles map[string]float64

// Angles reports every bone's axis angle.
func (s *Skeleton) Angles() JointAngles {
	out := make(JointAngles, len(s.bones))
	for name, b := range s.bones {
		out[name] = DecomposeBone(b)
	}
	return out
}

// DecomposeBone returns the bone's signed rotation around its joint axis.
func DecomposeBone(b *Bone) float64 {
	return orient.DecomposeAroundAxis(b.Rotation, b.Axis())
}
