// Package bundle is the flat saved-state map a container hands back after it
// was recreated.
package bundle

import (
	"fmt"
	"maps"

	"github.com/pelletier/go-toml/v2"
)

// Reserved keys.
const (
	// KeyPresenterID holds the savior id of the container's presenter.
	KeyPresenterID = "presenter_id"
	// KeyHostScope holds the savior scope id of the host.
	KeyHostScope = "anchor_host_scope_id"
)

// Bundle maps string keys to string values. A nil Bundle reads as empty.
type Bundle map[string]string

// Get returns the value stored under key.
func (b Bundle) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b[key]
	return v, ok
}

// Clone returns an independent copy.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	return maps.Clone(b)
}

type document struct {
	Values map[string]string `toml:"values"`
}

// Marshal encodes b as TOML.
func Marshal(b Bundle) ([]byte, error) {
	data, err := toml.Marshal(document{Values: b})
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a bundle produced by Marshal. Empty input yields an empty
// bundle.
func Unmarshal(data []byte) (Bundle, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if doc.Values == nil {
		return Bundle{}, nil
	}
	return Bundle(doc.Values), nil
}
