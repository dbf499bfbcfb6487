// Package persistence stores orchestrator specifications: in memory, in
// SQLite, or as .wfl documents on disk.
package persistence

import (
	"errors"

	"github.com/rheijn/flume/pkg/api"
)

// ErrSpecNotFound is returned when a named specification is not in the store.
var ErrSpecNotFound = errors.New("specification not found")

// SpecStore handles storage of orchestrator specifications by name.
type SpecStore interface {
	SaveSpec(name string, spec *api.Spec) error
	GetSpec(name string) (*api.Spec, error)
	// ListSpecs returns the stored names in lexical order.
	ListSpecs() ([]string, error)
	DeleteSpec(name string) error
}
