// Package calib captures a rest-pose offset per hand and removes it from
// subsequent readings. Persistence goes through an explicit Store injected
// into the Manager; there is no process-wide storage key.
package calib

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/trace"
)

// Retention is how long a persisted calibration stays valid. Entries older
// than this are discarded at load and the hand reverts to uncalibrated.
const Retention = 7 * 24 * time.Hour

// Record is the persisted calibration state for one hand.
type Record struct {
	ID        string              `json:"id"`
	Side      landmark.Side       `json:"side"`
	Offsets   map[string]float64  `json:"offsets"`
	RestPose  extract.HandAngles  `json:"restPose"`
	Timestamp time.Time           `json:"timestamp"`
}

// Manager holds the in-memory calibration state for both hands.
type Manager struct {
	store Store
	tr    trace.Tracer
	now   func() time.Time

	mu      sync.RWMutex
	records map[landmark.Side]*Record
}

// NewManager creates a Manager backed by the given store. A nil store
// disables persistence but calibration still works in memory.
func NewManager(store Store, tr trace.Tracer) *Manager {
	if tr == nil {
		tr = trace.Nop()
	}
	return &Manager{
		store:   store,
		tr:      tr,
		now:     time.Now,
		records: make(map[landmark.Side]*Record),
	}
}

// Load restores persisted calibration for both hands. Expired or unreadable
// entries leave the hand uncalibrated; loading never fails the pipeline.
func (m *Manager) Load() {
	if m.store == nil {
		return
	}
	for _, side := range []landmark.Side{landmark.Left, landmark.Right} {
		rec, err := m.store.Load(side)
		if err != nil {
			if err != ErrNotFound {
				m.tr.Error("calibration.load", err, map[string]any{"side": side})
			}
			continue
		}
		if m.now().Sub(rec.Timestamp) > Retention {
			m.tr.Event("calibration.expired", map[string]any{"side": side, "age": m.now().Sub(rec.Timestamp)})
			if err := m.store.Delete(side); err != nil {
				m.tr.Error("calibration.delete", err, map[string]any{"side": side})
			}
			continue
		}
		m.mu.Lock()
		m.records[side] = rec
		m.mu.Unlock()
	}
}

// Calibrate captures the current reading as the rest-pose offset for the
// given hand. An empty angle set fails the capture and reports false.
// Persistence is fire-and-forget: a failed write degrades to "not
// persisted" without affecting the in-memory state.
func (m *Manager) Calibrate(side landmark.Side, angles extract.HandAngles) bool {
	if len(angles) == 0 {
		return false
	}

	offsets := make(map[string]float64, len(angles))
	rest := make(extract.HandAngles, len(angles))
	for name, a := range angles {
		offsets[name] = a.Pitch
		rest[name] = a
	}

	rec := &Record{
		ID:        uuid.New().String(),
		Side:      side,
		Offsets:   offsets,
		RestPose:  rest,
		Timestamp: m.now(),
	}

	m.mu.Lock()
	m.records[side] = rec
	m.mu.Unlock()

	if m.store != nil {
		go func() {
			if err := m.store.Save(rec); err != nil {
				m.tr.Error("calibration.persist", err, map[string]any{"side": side})
			}
		}()
	}

	m.tr.Event("calibration.captured", map[string]any{"side": side, "joints": len(offsets)})
	return true
}

// flexionOnly reports whether a joint only flexes in one direction and
// should be floored at zero after offset removal. Finger joints carry an
// underscore in their name; the wrist moves both ways.
func flexionOnly(name string) bool {
	return strings.Contains(name, "_") && !strings.Contains(name, "wrist")
}

// Apply removes the stored offset from a raw reading. Uncalibrated hands
// get the reading back unchanged. Pure function of the stored offsets:
// calibrated = raw - offset, with flexion-only joints floored at zero.
func (m *Manager) Apply(side landmark.Side, raw extract.HandAngles) extract.HandAngles {
	m.mu.RLock()
	rec := m.records[side]
	m.mu.RUnlock()

	if rec == nil {
		return raw
	}

	out := make(extract.HandAngles, len(raw))
	for name, a := range raw {
		if off, ok := rec.Offsets[name]; ok {
			a.Pitch -= off
			if flexionOnly(name) && a.Pitch < 0 {
				a.Pitch = 0
			}
		}
		out[name] = a
	}
	return out
}

// Calibrated reports whether the given hand has a valid offset.
func (m *Manager) Calibrated(side landmark.Side) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[side] != nil
}

// RestPose returns the stored rest-pose snapshot, or nil if uncalibrated.
func (m *Manager) RestPose(side landmark.Side) extract.HandAngles {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec := m.records[side]; rec != nil {
		return rec.RestPose
	}
	return nil
}

// Reset discards calibration for the given hand, in memory and in the
// store.
func (m *Manager) Reset(side landmark.Side) {
	m.mu.Lock()
	delete(m.records, side)
	m.mu.Unlock()

	if m.store != nil {
		go func() {
			if err := m.store.Delete(side); err != nil && err != ErrNotFound {
				m.tr.Error("calibration.delete", err, map[string]any{"side": side})
			}
		}()
	}
}
