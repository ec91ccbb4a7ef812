// Package adapter connects the retargeting core to target hand models.
// An adapter exposes a model's joint graph for mapper resolution and
// accepts per-joint angle commands; implementations clamp defensively
// against their own limits regardless of what upstream already clamped.
package adapter

import (
	"sync"

	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/retarget"
)

// Adapter is the target model contract. SetJointValue must tolerate
// unknown joint names by ignoring them; one bad command must not abort
// a frame. Flush pushes the accumulated frame out to the model.
type Adapter interface {
	Name() string
	Joints() []retarget.JointSpec
	SetJointValue(joint string, radians float64)
	Flush() error
}

// Memory is an in-process adapter backed by a value map. It is the
// default egress target and the test double for external adapters.
type Memory struct {
	name   string
	joints []retarget.JointSpec
	limits map[string]*retarget.Limit

	mu     sync.RWMutex
	values map[string]float64
}

// NewMemory builds an adapter over a resolved model.
func NewMemory(spec *retarget.ModelSpec) *Memory {
	m := &Memory{
		name:   spec.Name,
		joints: spec.Joints,
		limits: make(map[string]*retarget.Limit, len(spec.Joints)),
		values: make(map[string]float64),
	}
	for i := range spec.Joints {
		j := &spec.Joints[i]
		if j.Type == retarget.JointFixed {
			continue
		}
		m.limits[j.Name] = j.Limit
	}
	return m
}

func (m *Memory) Name() string { return m.name }

// Joints returns the model's joint graph.
func (m *Memory) Joints() []retarget.JointSpec { return m.joints }

// SetJointValue stores a command, clamped to the joint's limit. Unknown
// and fixed joints are ignored.
func (m *Memory) SetJointValue(joint string, radians float64) {
	lim, ok := m.limits[joint]
	if !ok {
		return
	}
	if lim != nil {
		radians = mathx.Clamp(radians, lim.Lower, lim.Upper)
	}
	m.mu.Lock()
	m.values[joint] = radians
	m.mu.Unlock()
}

// Flush is a no-op for the in-memory adapter.
func (m *Memory) Flush() error { return nil }

// Value reports the last commanded angle for a joint.
func (m *Memory) Value(joint string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[joint]
	return v, ok
}

// Values returns a copy of all commanded angles.
func (m *Memory) Values() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// ResetPositions clears all commanded values, used when tracking is
// lost and positional outputs revert to unknown.
func (m *Memory) ResetPositions() {
	m.mu.Lock()
	m.values = make(map[string]float64)
	m.mu.Unlock()
}

var _ Adapter = (*Memory)(nil)
