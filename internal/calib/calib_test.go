package calib

import (
	"math"
	"testing"
	"time"

	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/trace"
)

func restAngles() extract.HandAngles {
	return extract.HandAngles{
		"index_mcp": extract.Scalar(0.15),
		"index_pip": extract.Scalar(0.22),
		"wrist":     extract.Multi(0.1, -0.05, 0.02),
	}
}

func TestCalibrate_EmptySetFails(t *testing.T) {
	m := NewManager(NewMemoryStore(), trace.Nop())
	if m.Calibrate(landmark.Right, extract.HandAngles{}) {
		t.Error("calibrating with an empty angle set should report false")
	}
	if m.Calibrated(landmark.Right) {
		t.Error("failed calibration must not mark the hand calibrated")
	}
}

func TestApply_Uncalibrated(t *testing.T) {
	m := NewManager(NewMemoryStore(), trace.Nop())
	raw := restAngles()
	got := m.Apply(landmark.Right, raw)
	if got["index_mcp"].Pitch != raw["index_mcp"].Pitch {
		t.Error("uncalibrated Apply should return the reading unchanged")
	}
}

func TestApply_RoundTripLaw(t *testing.T) {
	m := NewManager(NewMemoryStore(), trace.Nop())
	rest := restAngles()

	if !m.Calibrate(landmark.Right, rest) {
		t.Fatal("calibration failed")
	}

	// Applying calibration to the calibration snapshot yields zero for
	// every calibrated joint.
	got := m.Apply(landmark.Right, rest)
	for name, a := range got {
		if math.Abs(a.Pitch) > 1e-12 {
			t.Errorf("%s: calibrated rest pose = %f, want 0", name, a.Pitch)
		}
	}
}

func TestApply_FlexionFloor(t *testing.T) {
	m := NewManager(NewMemoryStore(), trace.Nop())
	m.Calibrate(landmark.Right, extract.HandAngles{
		"index_pip": extract.Scalar(0.3),
		"wrist":     extract.Scalar(0.3),
	})

	raw := extract.HandAngles{
		"index_pip": extract.Scalar(0.1), // below the rest offset
		"wrist":     extract.Scalar(0.1),
	}
	got := m.Apply(landmark.Right, raw)

	if got["index_pip"].Pitch != 0 {
		t.Errorf("flexion joint should floor at zero, got %f", got["index_pip"].Pitch)
	}
	if math.Abs(got["wrist"].Pitch-(-0.2)) > 1e-12 {
		t.Errorf("wrist may go negative, got %f want -0.2", got["wrist"].Pitch)
	}
}

func TestCalibrate_SidesIndependent(t *testing.T) {
	m := NewManager(NewMemoryStore(), trace.Nop())
	m.Calibrate(landmark.Right, restAngles())

	if m.Calibrated(landmark.Left) {
		t.Error("calibrating the right hand must not calibrate the left")
	}
	raw := extract.HandAngles{"index_mcp": extract.Scalar(0.5)}
	if got := m.Apply(landmark.Left, raw); got["index_mcp"].Pitch != 0.5 {
		t.Error("left hand reading should pass through unchanged")
	}
}

func TestLoad_DiscardsExpired(t *testing.T) {
	store := NewMemoryStore()

	m := NewManager(store, trace.Nop())
	m.now = func() time.Time { return time.Unix(1000, 0) }
	m.Calibrate(landmark.Right, restAngles())

	// Wait for the async save.
	waitForSave(t, store, landmark.Right)

	// A fresh manager ahead of the retention window must discard it.
	m2 := NewManager(store, trace.Nop())
	m2.now = func() time.Time { return time.Unix(1000, 0).Add(Retention + time.Hour) }
	m2.Load()

	if m2.Calibrated(landmark.Right) {
		t.Error("expired calibration should leave the hand uncalibrated")
	}
}

func TestLoad_RestoresFresh(t *testing.T) {
	store := NewMemoryStore()

	m := NewManager(store, trace.Nop())
	m.Calibrate(landmark.Right, restAngles())
	waitForSave(t, store, landmark.Right)

	m2 := NewManager(store, trace.Nop())
	m2.Load()
	if !m2.Calibrated(landmark.Right) {
		t.Fatal("fresh calibration should be restored at load")
	}

	got := m2.Apply(landmark.Right, restAngles())
	for name, a := range got {
		if math.Abs(a.Pitch) > 1e-12 {
			t.Errorf("%s: restored calibration should zero the rest pose, got %f", name, a.Pitch)
		}
	}
}

func TestCalibrate_PersistFailureKeepsMemoryState(t *testing.T) {
	store := NewMemoryStore()
	store.FailSaves = true

	m := NewManager(store, trace.Nop())
	if !m.Calibrate(landmark.Right, restAngles()) {
		t.Fatal("calibration should succeed even when persistence fails")
	}
	if !m.Calibrated(landmark.Right) {
		t.Error("in-memory calibration must survive a failed write")
	}
}

func TestReset(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, trace.Nop())
	m.Calibrate(landmark.Right, restAngles())
	waitForSave(t, store, landmark.Right)

	m.Reset(landmark.Right)
	if m.Calibrated(landmark.Right) {
		t.Error("reset should discard calibration")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := store.Load(landmark.Right); err == ErrNotFound {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reset should delete the persisted record")
		}
		time.Sleep(time.Millisecond)
	}
}

// waitForSave blocks until the async persistence write lands.
func waitForSave(t *testing.T, store *MemoryStore, side landmark.Side) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := store.Load(side); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("persisted record never appeared")
		}
		time.Sleep(time.Millisecond)
	}
}
