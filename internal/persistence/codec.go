package persistence

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rheijn/flume/pkg/api"
)

// EncodeSpec serializes a specification to the .wfl document format.
func EncodeSpec(spec *api.Spec) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encoding spec: %w", err)
	}
	return data, nil
}

// DecodeSpec parses a .wfl document. A missing version field decodes to an
// empty string; callers decide how strict to be about it.
func DecodeSpec(data []byte) (*api.Spec, error) {
	var spec api.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}
	return &spec, nil
}
