package api

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is the engine version recorded in saved specifications and
// compared against on load.
const Version = "1.2.0"

// Spec is the portable description of a full orchestrator state: registry
// activation flags, every pipeline's operation set, and every plugin's
// configuration. It is the unit of persistence, serialized as a YAML
// document (conventionally a .wfl file).
// Workflows and Plugins are lists rather than mappings so that pipeline
// creation order and plugin registration order survive the round trip.
type Spec struct {
	Version      string          `yaml:"version"`
	OpActivation map[string]bool `yaml:"op_activation,omitempty"`
	Workflows    []WorkflowSpec  `yaml:"workflows,omitempty"`
	Plugins      []PluginSpec    `yaml:"plugins,omitempty"`
}

// WorkflowSpec describes one pipeline. Ops is a list for the same reason the
// pipelines themselves are: operation insertion order is part of the state.
type WorkflowSpec struct {
	Name string   `yaml:"name"`
	Ops  []OpSpec `yaml:"ops"`
}

// OpSpec describes one operation instance: its tag within the pipeline, the
// registered type name used to reconstruct it, and each input's locator.
type OpSpec struct {
	Tag    string               `yaml:"tag"`
	Type   string               `yaml:"type"`
	Inputs map[string]InputSpec `yaml:"inputs,omitempty"`
}

// InputSpec is the serialized form of an InputLocator. Runtime locators keep
// their kind but drop the value; they are re-established at load time by the
// caller.
type InputSpec struct {
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value,omitempty"`
}

// PluginSpec describes one plugin instance: its tag, the registered type
// name, and the configuration inputs used to reconstruct it.
type PluginSpec struct {
	Tag    string         `yaml:"tag"`
	Type   string         `yaml:"type"`
	Inputs map[string]any `yaml:"inputs,omitempty"`
}

// LocatorSpec converts a live locator to its serialized form.
func LocatorSpec(loc InputLocator) InputSpec {
	spec := InputSpec{Kind: loc.Kind.String()}
	if loc.Kind != KindRuntime {
		spec.Value = loc.Value
	}
	return spec
}

// SpecLocator converts a serialized input back to a live locator.
func SpecLocator(spec InputSpec) (InputLocator, error) {
	kind, err := ParseInputKind(spec.Kind)
	if err != nil {
		return InputLocator{}, err
	}
	loc := InputLocator{Kind: kind, Value: spec.Value}
	if kind == KindWorkflowItem {
		// YAML decodes string lists as []any; normalize to []string.
		if vs, ok := spec.Value.([]any); ok {
			uris := make([]string, 0, len(vs))
			for _, v := range vs {
				s, ok := v.(string)
				if !ok {
					return InputLocator{}, fmt.Errorf("workflow_item locator value %v is not a uri", v)
				}
				uris = append(uris, s)
			}
			loc.Value = uris
		}
	}
	return loc, nil
}

var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// ParseVersion extracts major, minor, patch from a version string.
func ParseVersion(v string) (major, minor, patch int, err error) {
	m := versionRe.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("malformed version string %q", v)
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	patch, _ = strconv.Atoi(m[3])
	return major, minor, patch, nil
}

// CheckVersion compares a saved spec version against the running engine's
// version. It returns a non-nil warning when the saved major or minor
// version is behind; unparseable saved versions also warn rather than fail.
func CheckVersion(saved, current string) *VersionWarning {
	sMaj, sMin, _, err := ParseVersion(saved)
	if err != nil {
		return &VersionWarning{SavedVersion: saved, CurrentVersion: current}
	}
	cMaj, cMin, _, err := ParseVersion(current)
	if err != nil {
		return nil
	}
	if sMaj < cMaj || (sMaj == cMaj && sMin < cMin) {
		return &VersionWarning{SavedVersion: saved, CurrentVersion: current}
	}
	return nil
}
