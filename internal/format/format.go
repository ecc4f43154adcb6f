// Package format abstracts translation file formats behind a small adapter
// interface. The sync and merge engines never touch file syntax directly;
// they enumerate units, look them up by id or source text, rewrite targets,
// and save, while each adapter owns parsing and serialization for one
// on-disk representation.
//
// Two adapters ship with the backend: flat JSON objects (paraglide/ARB
// style, with "@@"-prefixed metadata keys) and Java-style properties files.
// New formats register an Opener with the Registry.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned when neither guessing nor the supplied hint
// yields an adapter that can parse the input.
var ErrUnknownFormat = errors.New("unrecognized translation file format")

// ErrReadOnly is returned by Save on stores opened from a byte slice
// (uploads) rather than a file path.
var ErrReadOnly = errors.New("store is not backed by a file")

// Unit is one editable entry inside a Store.
//
// For monolingual formats (both built-in adapters) Source and Target return
// the same stored value; the distinction matters only when a template file
// provides the canonical source text.
type Unit interface {
	// ID returns the stable lookup key of the entry within its file.
	ID() string
	// Context returns the disambiguation context, usually equal to ID for
	// key-value formats.
	Context() string
	// Source returns the source text (first plural form).
	Source() string
	// Sources returns all plural forms of the source text.
	Sources() []string
	// Target returns the translated text (first plural form).
	Target() string
	// Targets returns all plural forms of the translated text.
	Targets() []string
	// SetTarget replaces the translated text with a single form.
	SetTarget(text string)
	// SetTargets replaces all plural forms of the translated text.
	SetTargets(texts []string)
	// IsFuzzy reports whether the entry is marked as needing review.
	IsFuzzy() bool
	// MarkFuzzy sets or clears the needs-review marker.
	MarkFuzzy(fuzzy bool)
	// IsTranslated reports whether the entry has a non-empty, non-fuzzy
	// translation.
	IsTranslated() bool
	// IsTranslatable reports whether the entry should be offered for
	// translation at all (headers and metadata are not).
	IsTranslatable() bool
	// IsHeader reports whether the entry carries file metadata rather than
	// translatable content.
	IsHeader() bool
}

// Store is an open translation file.
type Store interface {
	// Units returns all entries in file order, headers included.
	Units() []Unit
	// FindID returns the entry with the given id, or nil.
	FindID(id string) Unit
	// FindSource returns all entries whose source text equals text, in file
	// order. Callers that need a single match take the first.
	FindSource(text string) []Unit
	// Add appends a new entry with the id and source of u and an empty
	// target, returning the created entry for the caller to fill in. Used
	// when a template defines an entry the live file lacks.
	Add(u Unit) (Unit, error)
	// Save writes the store back to the file it was opened from.
	Save() error
	// Format returns the adapter id ("flatjson", "properties", ...).
	Format() string
	// RequiresExplicitAdd reports whether entries resolved from a template
	// must be added via Add before they appear in the file, as opposed to
	// formats that materialize entries on first write.
	RequiresExplicitAdd() bool
}

// HeaderUpdater is implemented by stores that expose editable file metadata.
type HeaderUpdater interface {
	// UpdateHeader sets the given header fields, creating them if absent.
	UpdateHeader(fields map[string]string)
}

// HeaderMerger is implemented by stores that can adopt another store's
// header wholesale during a merge.
type HeaderMerger interface {
	// MergeHeader copies header metadata from other into the receiver.
	MergeHeader(other Store)
}

// Opener parses one format. When data is nil the opener reads path from
// disk; otherwise it parses data and produces a read-only store.
type Opener func(path string, data []byte) (Store, error)

// Registry maps format ids to openers and implements guess-then-fallback
// opening. It is built once at process start and passed by reference to the
// services that need it; there is no ambient global registry.
type Registry struct {
	order   []string
	openers map[string]Opener
	byExt   map[string]string
}

// NewRegistry returns a registry with the built-in adapters registered.
func NewRegistry() *Registry {
	r := &Registry{
		openers: make(map[string]Opener),
		byExt:   make(map[string]string),
	}
	r.Register(FormatFlatJSON, openFlatJSON, ".json")
	r.Register(FormatProperties, openProperties, ".properties")
	return r
}

// Register adds an opener under the given id, optionally associating file
// extensions for guessing. Later registrations with the same id replace
// earlier ones but keep the original guess order.
func (r *Registry) Register(id string, open Opener, exts ...string) {
	if _, exists := r.openers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.openers[id] = open
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = id
	}
}

// Open parses the file at path. The format is guessed from the file
// extension first, then every registered adapter is tried in registration
// order; hint names the adapter to prefer when guessing fails.
func (r *Registry) Open(path, hint string) (Store, error) {
	return r.open(path, nil, hint)
}

// OpenBytes parses an in-memory file, typically an upload. The resulting
// store is read-only: Save returns ErrReadOnly.
func (r *Registry) OpenBytes(data []byte, hint string) (Store, error) {
	return r.open("", data, hint)
}

func (r *Registry) open(path string, data []byte, hint string) (Store, error) {
	tried := make(map[string]bool)
	var firstErr error

	attempt := func(id string) (Store, error) {
		open, ok := r.openers[id]
		if !ok || tried[id] {
			return nil, nil
		}
		tried[id] = true
		st, err := open(path, data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil, nil
		}
		return st, nil
	}

	if path != "" {
		if id, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
			if st, _ := attempt(id); st != nil {
				return st, nil
			}
		}
	}
	if hint != "" {
		if st, _ := attempt(hint); st != nil {
			return st, nil
		}
	}
	for _, id := range r.order {
		if st, _ := attempt(id); st != nil {
			return st, nil
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, firstErr)
	}
	return nil, ErrUnknownFormat
}
