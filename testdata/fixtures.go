// Package testdata embeds hand model specs shared by integration tests.
package testdata

import (
	"embed"
	"fmt"

	"github.com/reatured/handvis/internal/retarget"
)

//go:embed models/*.json
var modelsFS embed.FS

// LoadModelJSON returns the raw spec for an embedded model.
func LoadModelJSON(name string) ([]byte, error) {
	data, err := modelsFS.ReadFile("models/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	return data, nil
}

// LoadModelSpec parses an embedded model.
func LoadModelSpec(name string) (*retarget.ModelSpec, error) {
	data, err := LoadModelJSON(name)
	if err != nil {
		return nil, err
	}
	spec, err := retarget.ParseModelSpec(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", name, err)
	}
	return spec, nil
}
