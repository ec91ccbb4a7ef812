package adapter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/reatured/handvis/internal/retarget"
)

// ErrAdapterNotFound is returned when a requested adapter cannot be found.
var ErrAdapterNotFound = errors.New("adapter not found")

// Manifest describes an external adapter: the executable that consumes
// joint frames and the inline model spec describing its joint graph.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Model       json.RawMessage `json:"model"`
}

// External is a discovered external adapter with its parsed model.
type External struct {
	Manifest   Manifest
	Path       string
	Executable string
	Model      *retarget.ModelSpec
}

// Manager discovers external adapters under a directory. Each adapter
// lives in its own subdirectory holding an adapter.json manifest.
type Manager struct {
	adapterDir string
	adapters   map[string]*External
	mu         sync.RWMutex
}

// NewManager creates a Manager over the given adapter directory.
func NewManager(adapterDir string) *Manager {
	return &Manager{
		adapterDir: adapterDir,
		adapters:   make(map[string]*External),
	}
}

// Discover scans the adapter directory for adapter.json manifests.
// Unreadable or invalid manifests are skipped, not fatal; a missing
// directory is treated as empty.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.adapters = make(map[string]*External)

	info, err := os.Stat(m.adapterDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.adapterDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		adapterPath := filepath.Join(m.adapterDir, entry.Name())
		manifestPath := filepath.Join(adapterPath, "adapter.json")

		manifestData, err := os.ReadFile(manifestPath)
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		ext := &External{
			Manifest:   manifest,
			Path:       adapterPath,
			Executable: filepath.Join(adapterPath, manifest.Executable),
		}
		if len(manifest.Model) > 0 {
			model, err := retarget.ParseModelSpec(manifest.Model)
			if err != nil {
				continue
			}
			ext.Model = model
		}

		m.adapters[manifest.Name] = ext
	}

	return nil
}

// Get returns a discovered adapter by name.
func (m *Manager) Get(name string) (*External, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ext, ok := m.adapters[name]
	if !ok {
		return nil, ErrAdapterNotFound
	}
	return ext, nil
}

// List returns all discovered adapters.
func (m *Manager) List() []*External {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*External, 0, len(m.adapters))
	for _, ext := range m.adapters {
		out = append(out, ext)
	}
	return out
}

// AdapterDir returns the directory being scanned.
func (m *Manager) AdapterDir() string {
	return m.adapterDir
}
