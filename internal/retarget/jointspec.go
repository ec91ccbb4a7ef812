// Package retarget resolves a target model's joint graph into semantic
// multi-axis groups and dispatches extracted angles onto the model's
// native joints.
package retarget

import (
	"encoding/json"
	"fmt"
)

// JointType is the actuation type of a model joint.
type JointType string

// Joint types understood by the parser. Fixed joints are discarded at
// load; everything else is treated as actuated.
const (
	JointRevolute   JointType = "revolute"
	JointContinuous JointType = "continuous"
	JointFixed      JointType = "fixed"
)

// Limit is an inclusive joint range in radians. A nil *Limit means
// unbounded.
type Limit struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Mimic declares that the owning joint follows a master joint as
// multiplier*master + offset.
type Mimic struct {
	Joint      string  `json:"joint"`
	Multiplier float64 `json:"multiplier"`
	Offset     float64 `json:"offset"`
}

// JointSpec is one joint of a target model's graph, resolved to a strongly
// typed entry at model-load time so per-frame dispatch never inspects shapes.
type JointSpec struct {
	Name   string     `json:"name"`
	Type   JointType  `json:"type"`
	Parent string     `json:"parent"`
	Child  string     `json:"child"`
	Origin [3]float64 `json:"origin"`
	Axis   [3]float64 `json:"axis"`
	Limit  *Limit     `json:"limit,omitempty"`
	Mimic  *Mimic     `json:"mimic,omitempty"`
}

// ChainSpec names an IK chain: an effector bone, the ordered links it
// hangs off, and a virtual target bone.
type ChainSpec struct {
	Name     string   `json:"name"`
	Effector string   `json:"effector"`
	Links    []string `json:"links"`
	Target   string   `json:"target"`
}

// ModelSpec is the declarative description of a target hand model.
type ModelSpec struct {
	Name   string      `json:"name"`
	Joints []JointSpec `json:"joints"`
	Chains []ChainSpec `json:"chains,omitempty"`
}

// ParseModelSpec decodes and validates a model spec. Actuated joints must
// carry a non-zero axis and every mimic master must resolve to another
// joint in the same graph.
func ParseModelSpec(data []byte) (*ModelSpec, error) {
	var spec ModelSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse model spec: %w", err)
	}

	byName := make(map[string]*JointSpec, len(spec.Joints))
	for i := range spec.Joints {
		j := &spec.Joints[i]
		if j.Name == "" {
			return nil, fmt.Errorf("joint %d has no name", i)
		}
		if _, dup := byName[j.Name]; dup {
			return nil, fmt.Errorf("duplicate joint %q", j.Name)
		}
		byName[j.Name] = j
	}

	for i := range spec.Joints {
		j := &spec.Joints[i]
		if j.Type == JointFixed {
			continue
		}
		if j.Axis == [3]float64{} {
			return nil, fmt.Errorf("joint %q has a zero axis", j.Name)
		}
		if j.Mimic != nil {
			master, ok := byName[j.Mimic.Joint]
			if !ok {
				return nil, fmt.Errorf("joint %q mimics unknown joint %q", j.Name, j.Mimic.Joint)
			}
			if master.Name == j.Name {
				return nil, fmt.Errorf("joint %q mimics itself", j.Name)
			}
		}
	}

	return &spec, nil
}
