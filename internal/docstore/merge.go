package docstore

import (
	"encoding/json"
	"fmt"
)

// MergeBodies overlays the top-level fields of patch onto base. A nil base
// yields patch itself. Both must be JSON objects.
func MergeBodies(base, patch []byte) ([]byte, error) {
	var p map[string]json.RawMessage
	if err := json.Unmarshal(patch, &p); err != nil {
		return nil, fmt.Errorf("decode merge body: %w", err)
	}
	b := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &b); err != nil {
			return nil, fmt.Errorf("decode existing document: %w", err)
		}
	}
	for k, v := range p {
		b[k] = v
	}
	return json.Marshal(b)
}

// ValidBody reports whether body is a JSON object.
func ValidBody(body []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("document body must be a JSON object: %w", err)
	}
	return nil
}
