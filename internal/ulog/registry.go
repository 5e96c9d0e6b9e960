package ulog

import (
	"fmt"

	"github.com/alexkar598/ulog-decoder/internal/er"
)

// RegistryErrorType groups faults raised while assembling the System
// Registry out of one or more loaded dictionaries.
var RegistryErrorType = er.NewErrorType("ulog.RegistryError")

// DuplicateSystemId is raised when two dictionary files declare the same
// system_id. The source implementation this was ported from reports the
// colliding id together with the path of the file being loaded when the
// collision is noticed, which is also, confusingly, the path the caller
// already knows since it's the one currently being processed; the path of
// the earlier file that actually holds the id is more useful for tracking
// the conflict down, so this reports both.
var DuplicateSystemId = RegistryErrorType.Code("duplicate system id")

// Dictionary is one loaded system's full log dictionary: its identity, its
// constant string table keyed by id, and its message table keyed by
// message id. Path records which file it came from, for diagnostics.
type Dictionary struct {
	Path     string
	Info     ULogSystemInfo
	Strings  map[uint16]*ULogString
	Messages map[uint16]*ULogMessage
}

// Registry maps system_id to the dictionary loaded for that system. It is
// built once at startup by successive calls to Insert and is read-only for
// the remainder of the process's life; no locking is needed since the
// frame decode loop is single-threaded.
type Registry struct {
	systems map[uint16]*Dictionary
}

// NewRegistry returns an empty registry ready to accept dictionaries.
func NewRegistry() *Registry {
	return &Registry{systems: make(map[uint16]*Dictionary)}
}

// Insert adds one loaded dictionary under its system id. It is an error to
// insert a second dictionary for a system id already present, whether that
// collision comes from two files declaring the same id or the same file
// loaded twice; the registry only ever tracks the first.
func (r *Registry) Insert(d *Dictionary) er.R {
	if existing, exists := r.systems[d.Info.SystemID]; exists {
		return DuplicateSystemId.New(fmt.Sprintf(
			"system_id=0x%04x already loaded from %s, rejecting %s",
			d.Info.SystemID, existing.Path, d.Path,
		), nil)
	}
	r.systems[d.Info.SystemID] = d
	return nil
}

// Lookup returns the dictionary registered for systemID, or nil if no
// dictionary declared that id.
func (r *Registry) Lookup(systemID uint16) *Dictionary {
	return r.systems[systemID]
}

// Len reports how many systems are registered.
func (r *Registry) Len() int { return len(r.systems) }
