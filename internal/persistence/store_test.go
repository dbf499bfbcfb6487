package persistence

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rheijn/flume/pkg/api"
)

func sampleSpec() *api.Spec {
	return &api.Spec{
		Version: api.Version,
		OpActivation: map[string]bool{
			"IO.ReadCSV":        true,
			"PROCESSING.Fit":    true,
			"PROCESSING.Smooth": false,
		},
		Workflows: []api.WorkflowSpec{
			{
				Name: "reduce",
				Ops: []api.OpSpec{
					{
						Tag:  "read",
						Type: "IO.ReadCSV",
						Inputs: map[string]api.InputSpec{
							"path": {Kind: "filepath", Value: "data/scan_042.csv"},
						},
					},
					{
						Tag:  "fit",
						Type: "PROCESSING.Fit",
						Inputs: map[string]api.InputSpec{
							"samples": {Kind: "workflow_item", Value: "read.outputs.data"},
						},
					},
				},
			},
		},
		Plugins: []api.PluginSpec{
			{Tag: "timer", Type: "TIMERS.Periodic", Inputs: map[string]any{"interval_s": 0.5}},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	spec := sampleSpec()

	data, err := EncodeSpec(spec)
	if err != nil {
		t.Fatalf("EncodeSpec failed: %v", err)
	}
	got, err := DecodeSpec(data)
	if err != nil {
		t.Fatalf("DecodeSpec failed: %v", err)
	}
	if !reflect.DeepEqual(got, spec) {
		t.Fatalf("round trip mismatch:\nwant %#v\ngot  %#v", spec, got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeSpec([]byte("{not yaml:")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeMissingVersion(t *testing.T) {
	spec, err := DecodeSpec([]byte("workflows: []\n"))
	if err != nil {
		t.Fatalf("DecodeSpec failed: %v", err)
	}
	if spec.Version != "" {
		t.Fatalf("expected empty version, got %q", spec.Version)
	}
}

func TestInMemoryStoreCRUD(t *testing.T) {
	store := NewInMemoryStore()
	spec := sampleSpec()

	if _, err := store.GetSpec("session"); !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
	if err := store.SaveSpec("session", spec); err != nil {
		t.Fatalf("SaveSpec failed: %v", err)
	}
	got, err := store.GetSpec("session")
	if err != nil {
		t.Fatalf("GetSpec failed: %v", err)
	}
	if !reflect.DeepEqual(got, spec) {
		t.Fatal("stored spec does not match saved spec")
	}

	if err := store.SaveSpec("nightly", sampleSpec()); err != nil {
		t.Fatalf("second SaveSpec failed: %v", err)
	}
	names, err := store.ListSpecs()
	if err != nil {
		t.Fatalf("ListSpecs failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"nightly", "session"}) {
		t.Fatalf("expected sorted names, got %v", names)
	}

	if err := store.DeleteSpec("session"); err != nil {
		t.Fatalf("DeleteSpec failed: %v", err)
	}
	if err := store.DeleteSpec("session"); !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
}

func TestInMemoryStoreIsolation(t *testing.T) {
	store := NewInMemoryStore()
	spec := sampleSpec()
	if err := store.SaveSpec("session", spec); err != nil {
		t.Fatalf("SaveSpec failed: %v", err)
	}

	// Mutating the original after saving must not leak into the store.
	spec.OpActivation["IO.ReadCSV"] = false
	got, err := store.GetSpec("session")
	if err != nil {
		t.Fatalf("GetSpec failed: %v", err)
	}
	if !got.OpActivation["IO.ReadCSV"] {
		t.Fatal("expected stored copy isolated from caller mutation")
	}
}
