package sim

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Description is the construction input of a model and the shape of its
// serialized form.
type Description map[string]any

// ParseDescription decodes a JSON or YAML document.
func ParseDescription(data []byte) (Description, error) {
	trimmed := bytes.TrimSpace(data)
	var d Description
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &d); err != nil {
			return nil, fmt.Errorf("parse json description: %w", err)
		}
		return d, nil
	}
	if err := yaml.Unmarshal(trimmed, &d); err != nil {
		return nil, fmt.Errorf("parse yaml description: %w", err)
	}
	return d, nil
}

// Kind returns the model type, defaulting to md2d.
func (d Description) Kind() string {
	if k, ok := d["type"].(string); ok && k != "" {
		return k
	}
	return KindMD2D
}

func (d Description) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func (d Description) YAML() ([]byte, error) {
	return yaml.Marshal(map[string]any(d))
}

// Normalize round-trips d through JSON so that typed slices and maps become
// the generic values a decoder would produce.
func (d Description) Normalize() (Description, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Description
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
