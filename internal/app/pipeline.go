package app

import (
	"errors"
	"log"
	"time"

	"github.com/reatured/handvis/internal/landmark"
)

// run is the frame loop. One frame set triggers one full pass through
// solve, map and dispatch before the next frame is pulled; nothing else
// writes filter or calibration state.
func (a *App) run(src landmark.Source, stopCh, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		fs, err := src.Next()
		if err != nil {
			if errors.Is(err, landmark.ErrSourceClosed) {
				return
			}
			log.Printf("Error reading landmark frame: %v", err)
			continue
		}

		if !a.IsEnabled() {
			continue
		}
		a.ProcessFrameSet(fs)
	}
}

// ProcessFrameSet runs one frame through the pipeline.
//
// A frame with no hands retains the last joint-angle outputs but resets
// positional outputs to unknown; after TrackingLossFrames consecutive
// empty frames the filter history is cleared so a reacquired hand does
// not get smoothed against stale data.
func (a *App) ProcessFrameSet(fs *landmark.FrameSet) {
	if fs == nil {
		return
	}

	at := time.Now()
	if fs.TimestampMs > 0 {
		at = time.UnixMilli(fs.TimestampMs)
	}

	if len(fs.Hands) == 0 {
		a.handleEmptyFrame()
		return
	}

	a.mu.Lock()
	a.emptyFrames = 0
	pose := a.pose
	mapper := a.mapper
	target := a.target
	a.mu.Unlock()

	for i := range fs.Hands {
		hand := &fs.Hands[i]
		raw := pose.Solve(hand, at)
		if len(raw) == 0 {
			continue
		}
		angles := a.cal.Apply(hand.Handedness, raw)

		a.mu.Lock()
		a.rawPose[hand.Handedness] = raw
		a.lastPose[hand.Handedness] = angles
		a.positions[hand.Handedness] = hand.Points[landmark.Wrist]
		a.mu.Unlock()

		mapper.DispatchAll(angles, target)
	}

	if err := target.Flush(); err != nil {
		a.tr.Error("app.flush", err, map[string]any{"adapter": target.Name()})
	}
}

// ResetTracking clears solver state and positional outputs for both
// sides. Called when a frame session ends so the next client starts
// from unsmoothed first samples.
func (a *App) ResetTracking() {
	a.mu.Lock()
	a.emptyFrames = 0
	a.positions = make(map[landmark.Side]landmark.Point3D)
	pose := a.pose
	a.mu.Unlock()

	pose.Reset(landmark.Left)
	pose.Reset(landmark.Right)
}

func (a *App) handleEmptyFrame() {
	a.mu.Lock()
	a.emptyFrames++
	lost := a.emptyFrames == TrackingLossFrames
	a.positions = make(map[landmark.Side]landmark.Point3D)
	pose := a.pose
	a.mu.Unlock()

	if lost {
		pose.Reset(landmark.Left)
		pose.Reset(landmark.Right)
		a.tr.Event("app.tracking_lost", map[string]any{"frames": TrackingLossFrames})
	}
}
