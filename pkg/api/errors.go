package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidURI is returned when a URI contains forbidden characters
	// or is empty.
	ErrInvalidURI = errors.New("invalid uri")

	// ErrInvalidTag is returned when a single tag segment is malformed,
	// for example when it contains a '.' separator.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrPathNotFound is returned when a URI does not resolve to a stored item.
	ErrPathNotFound = errors.New("path not found")

	// ErrDuplicateURI is returned when a URI collides with an existing item
	// in a context that requires uniqueness.
	ErrDuplicateURI = errors.New("duplicate uri")

	// ErrNotRegistered is returned by a registry lookup for an unknown name.
	ErrNotRegistered = errors.New("not registered")

	// ErrDisabled is returned when instantiating a registered but
	// deactivated entry.
	ErrDisabled = errors.New("disabled")

	// ErrUnknownWorkflow is returned when an orchestrator is asked about a
	// pipeline name it does not own.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrUnknownPlugin is returned when an orchestrator is asked about a
	// plugin tag it does not own.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// OpError wraps a failure raised by an operation's Run, attaching the
// operation's tag and type name so callers can locate the failing node.
type OpError struct {
	Tag  string
	Type string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %s (%s): %v", e.Tag, e.Type, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Diagnostics maps an input URI (or an operation tag) to a human-readable
// reason explaining why the resolver could not schedule it. An empty reason
// means the input resolved cleanly; only non-empty reasons indicate stalls.
type Diagnostics map[string]string

// Blocked returns the URIs with a non-empty reason, sorted for stable output.
func (d Diagnostics) Blocked() []string {
	var uris []string
	for uri, reason := range d {
		if reason != "" {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris
}

func (d Diagnostics) String() string {
	var b strings.Builder
	for _, uri := range d.Blocked() {
		fmt.Fprintf(&b, "%s: %s\n", uri, d[uri])
	}
	return b.String()
}

// VersionWarning reports that a loaded specification was written by an older
// engine. It is surfaced through the caller's logging channel, never as a
// hard error.
type VersionWarning struct {
	SavedVersion   string
	CurrentVersion string
}

func (w *VersionWarning) String() string {
	return fmt.Sprintf("specification was saved by engine version %s, current version is %s; "+
		"review workflows and plugins before relying on them", w.SavedVersion, w.CurrentVersion)
}
