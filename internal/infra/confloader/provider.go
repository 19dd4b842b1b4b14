package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// mapProvider feeds dotted-key override maps to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: overrides have no byte form")
}

// Read nests "tls.ca_file" style keys. The caller's map is copied so
// unflattening never aliases it.
func (m mapProvider) Read() (map[string]any, error) {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
