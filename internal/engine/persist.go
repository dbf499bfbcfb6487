package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rheijn/flume/internal/persistence"
)

// SaveFile writes the current state to a .wfl document at path. Parent
// directories are created as needed.
func (o *Orchestrator) SaveFile(path string) error {
	data, err := persistence.EncodeSpec(o.Snapshot())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a .wfl document from path and restores it.
func (o *Orchestrator) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	spec, err := persistence.DecodeSpec(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return o.Restore(ctx, spec)
}

// SaveTo writes the current state into a spec store under name.
func (o *Orchestrator) SaveTo(store persistence.SpecStore, name string) error {
	return store.SaveSpec(name, o.Snapshot())
}

// LoadFrom restores state previously saved in a spec store under name.
func (o *Orchestrator) LoadFrom(ctx context.Context, store persistence.SpecStore, name string) error {
	spec, err := store.GetSpec(name)
	if err != nil {
		return err
	}
	return o.Restore(ctx, spec)
}
