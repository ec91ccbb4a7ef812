// Package api provides the REST handlers for the hand retargeting
// service: registered hand models, calibration control and adapter
// selection.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reatured/handvis/internal/retarget"
	"github.com/reatured/handvis/internal/store"
)

// ModelActivator loads a registered model into the running pipeline.
// Implemented by app.App; nil disables the activate endpoint.
type ModelActivator interface {
	LoadModel(name string) error
}

// ModelsHandler handles HTTP requests for hand-model resources.
type ModelsHandler struct {
	store     *store.Store
	activator ModelActivator
}

// NewModelsHandler creates a ModelsHandler over the given store.
func NewModelsHandler(s *store.Store, activator ModelActivator) *ModelsHandler {
	return &ModelsHandler{store: s, activator: activator}
}

// ServeHTTP routes collection and item requests.
// Expected paths: /api/models, /api/models/{name}, /api/models/{name}/activate
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if name, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, name)
		return
	}

	name := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type registerModelRequest struct {
	Name string          `json:"name"`
	Spec json.RawMessage `json:"spec"`
}

type modelResponse struct {
	Name      string          `json:"name"`
	Spec      json.RawMessage `json:"spec"`
	Joints    int             `json:"joints"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type listModelsResponse struct {
	Models []modelResponse `json:"models"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toModelResponse(m *store.Model) modelResponse {
	resp := modelResponse{
		Name:      m.Name,
		Spec:      json.RawMessage(m.Spec),
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if spec, err := retarget.ParseModelSpec([]byte(m.Spec)); err == nil {
		resp.Joints = len(spec.Joints)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *ModelsHandler) list(w http.ResponseWriter, _ *http.Request) {
	models, err := h.store.Models().List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list models"})
		return
	}

	resp := listModelsResponse{Models: make([]modelResponse, 0, len(models))}
	for _, m := range models {
		resp.Models = append(resp.Models, toModelResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ModelsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req registerModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	// Reject specs the mapper could not resolve at load time.
	if _, err := retarget.ParseModelSpec(req.Spec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid model spec: " + err.Error()})
		return
	}

	if err := h.store.Models().Save(req.Name, string(req.Spec)); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save model"})
		return
	}

	m, err := h.store.Models().GetByName(req.Name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load saved model"})
		return
	}
	writeJSON(w, http.StatusCreated, toModelResponse(m))
}

func (h *ModelsHandler) get(w http.ResponseWriter, _ *http.Request, name string) {
	m, err := h.store.Models().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "model not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load model"})
		return
	}
	writeJSON(w, http.StatusOK, toModelResponse(m))
}

func (h *ModelsHandler) delete(w http.ResponseWriter, _ *http.Request, name string) {
	if err := h.store.Models().Delete(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "model not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete model"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModelsHandler) activate(w http.ResponseWriter, _ *http.Request, name string) {
	if h.activator == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no pipeline attached"})
		return
	}
	if err := h.activator.LoadModel(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "model not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": name})
}
