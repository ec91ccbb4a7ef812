package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reatured/handvis/internal/calib"
	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/landmark"
)

// CalibrationService is the slice of the pipeline the calibration
// endpoints need. Implemented by app.App.
type CalibrationService interface {
	Calibrate(side landmark.Side) bool
	Calibration() *calib.Manager
}

// CalibrationHandler exposes calibration status, trigger and reset.
type CalibrationHandler struct {
	service CalibrationService
}

// NewCalibrationHandler creates a CalibrationHandler.
func NewCalibrationHandler(service CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{service: service}
}

type sideStatus struct {
	Side       landmark.Side      `json:"side"`
	Calibrated bool               `json:"calibrated"`
	RestPose   extract.HandAngles `json:"rest_pose,omitempty"`
}

type calibrationStatusResponse struct {
	Sides []sideStatus `json:"sides"`
}

type calibrateRequest struct {
	Side landmark.Side `json:"side"`
}

// ServeHTTP routes calibration requests.
// Expected paths: /api/calibration (GET status, POST trigger),
// /api/calibration/{side} (DELETE reset).
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.status(w)
		case http.MethodPost:
			h.trigger(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	side, ok := parseSide(path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "side must be Left or Right"})
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.service.Calibration().Reset(side)
	w.WriteHeader(http.StatusNoContent)
}

func parseSide(s string) (landmark.Side, bool) {
	switch strings.ToLower(s) {
	case "left":
		return landmark.Left, true
	case "right":
		return landmark.Right, true
	}
	return "", false
}

func (h *CalibrationHandler) status(w http.ResponseWriter) {
	cal := h.service.Calibration()
	resp := calibrationStatusResponse{}
	for _, side := range []landmark.Side{landmark.Left, landmark.Right} {
		resp.Sides = append(resp.Sides, sideStatus{
			Side:       side,
			Calibrated: cal.Calibrated(side),
			RestPose:   cal.RestPose(side),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CalibrationHandler) trigger(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	side, ok := parseSide(string(req.Side))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "side must be Left or Right"})
		return
	}

	if !h.service.Calibrate(side) {
		// No retained pose yet: the hand has never been tracked.
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no hand pose available to calibrate from"})
		return
	}
	writeJSON(w, http.StatusOK, sideStatus{
		Side:       side,
		Calibrated: true,
		RestPose:   h.service.Calibration().RestPose(side),
	})
}
