package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/reatured/handvis/internal/adapter"
)

// AdapterService is the slice of the pipeline the adapter endpoints
// need. Implemented by app.App.
type AdapterService interface {
	DiscoverAdapters() error
	AdapterManager() *adapter.Manager
	UseExternalAdapter(name string) error
}

// AdaptersHandler lists discovered external adapters and switches the
// active joint-command target.
type AdaptersHandler struct {
	service AdapterService
}

// NewAdaptersHandler creates an AdaptersHandler.
func NewAdaptersHandler(service AdapterService) *AdaptersHandler {
	return &AdaptersHandler{service: service}
}

type adapterResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type listAdaptersResponse struct {
	Adapters []adapterResponse `json:"adapters"`
}

// ServeHTTP routes adapter requests.
// Expected paths: /api/adapters (GET list, POST rescan),
// /api/adapters/{name}/select (POST).
func (h *AdaptersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/adapters")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			if err := h.service.DiscoverAdapters(); err != nil {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "discovery failed"})
				return
			}
			h.list(w)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	name, ok := strings.CutSuffix(path, "/select")
	if !ok || r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.service.UseExternalAdapter(name); err != nil {
		if errors.Is(err, adapter.ErrAdapterNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "adapter not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": name})
}

func (h *AdaptersHandler) list(w http.ResponseWriter) {
	exts := h.service.AdapterManager().List()
	resp := listAdaptersResponse{Adapters: make([]adapterResponse, 0, len(exts))}
	for _, ext := range exts {
		resp.Adapters = append(resp.Adapters, adapterResponse{
			Name:        ext.Manifest.Name,
			Version:     ext.Manifest.Version,
			Description: ext.Manifest.Description,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
