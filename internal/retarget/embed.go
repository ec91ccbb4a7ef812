package retarget

import (
	_ "embed"
)

//go:embed models/default_hand.json
var defaultHandJSON []byte

// DefaultModelSpec returns the built-in hand model used when no model
// has been registered.
func DefaultModelSpec() (*ModelSpec, error) {
	return ParseModelSpec(defaultHandJSON)
}
