package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FormatFlatJSON identifies the flat JSON adapter: a single top-level object
// mapping string keys to string values, in the style of paraglide message
// files and ARB bundles. Keys prefixed with "@@" carry file metadata and are
// treated as the header.
const FormatFlatJSON = "flatjson"

// headerPrefix marks metadata keys in flat JSON files.
const headerPrefix = "@@"

type jsonEntry struct {
	key   string
	value string
	// fuzzy has no on-disk representation in flat JSON; it exists so merge
	// policy can be applied uniformly, and is dropped on save.
	fuzzy bool
}

func (e *jsonEntry) ID() string      { return e.key }
func (e *jsonEntry) Context() string { return e.key }
func (e *jsonEntry) Source() string  { return e.value }
func (e *jsonEntry) Sources() []string {
	return []string{e.value}
}
func (e *jsonEntry) Target() string { return e.value }
func (e *jsonEntry) Targets() []string {
	return []string{e.value}
}
func (e *jsonEntry) SetTarget(text string) { e.value = text }
func (e *jsonEntry) SetTargets(texts []string) {
	if len(texts) > 0 {
		e.value = texts[0]
	}
}
func (e *jsonEntry) IsFuzzy() bool        { return e.fuzzy }
func (e *jsonEntry) MarkFuzzy(fuzzy bool) { e.fuzzy = fuzzy }
func (e *jsonEntry) IsTranslated() bool   { return e.value != "" && !e.fuzzy }
func (e *jsonEntry) IsTranslatable() bool { return !e.IsHeader() }
func (e *jsonEntry) IsHeader() bool       { return strings.HasPrefix(e.key, headerPrefix) }

type jsonStore struct {
	path    string
	entries []*jsonEntry
}

func openFlatJSON(path string, data []byte) (Store, error) {
	if data == nil {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	entries, err := parseFlatJSON(data)
	if err != nil {
		return nil, err
	}
	return &jsonStore{path: path, entries: entries}, nil
}

// parseFlatJSON decodes a top-level JSON object of string values while
// preserving key order, which the standard map decoding would lose.
func parseFlatJSON(data []byte) ([]*jsonEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("flat json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("flat json: expected top-level object, got %v", tok)
	}

	var entries []*jsonEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("flat json: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("flat json: non-string key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("flat json: %w", err)
		}
		val, ok := valTok.(string)
		if !ok {
			return nil, fmt.Errorf("flat json: value of %q is not a string", key)
		}
		entries = append(entries, &jsonEntry{key: key, value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("flat json: %w", err)
	}
	return entries, nil
}

func (s *jsonStore) Units() []Unit {
	out := make([]Unit, len(s.entries))
	for i, e := range s.entries {
		out[i] = e
	}
	return out
}

func (s *jsonStore) FindID(id string) Unit {
	for _, e := range s.entries {
		if e.key == id {
			return e
		}
	}
	return nil
}

func (s *jsonStore) FindSource(text string) []Unit {
	var out []Unit
	for _, e := range s.entries {
		if !e.IsHeader() && e.value == text {
			out = append(out, e)
		}
	}
	return out
}

func (s *jsonStore) Add(u Unit) (Unit, error) {
	if s.FindID(u.ID()) != nil {
		return nil, fmt.Errorf("flat json: duplicate key %q", u.ID())
	}
	e := &jsonEntry{key: u.ID()}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *jsonStore) Save() error {
	if s.path == "" {
		return ErrReadOnly
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range s.entries {
		k, err := json.Marshal(e.key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(e.value)
		if err != nil {
			return err
		}
		buf.WriteString("\t")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(s.entries)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}

func (s *jsonStore) Format() string            { return FormatFlatJSON }
func (s *jsonStore) RequiresExplicitAdd() bool { return true }

// UpdateHeader sets "@@"-prefixed metadata keys, creating them if absent.
func (s *jsonStore) UpdateHeader(fields map[string]string) {
	for name, value := range fields {
		key := headerPrefix + name
		found := false
		for _, e := range s.entries {
			if e.key == key {
				e.value = value
				found = true
				break
			}
		}
		if !found {
			// Headers go to the front, keeping relative insertion order.
			s.entries = append([]*jsonEntry{{key: key, value: value}}, s.entries...)
		}
	}
}

// MergeHeader adopts every metadata key of other.
func (s *jsonStore) MergeHeader(other Store) {
	fields := make(map[string]string)
	for _, u := range other.Units() {
		if u.IsHeader() {
			fields[strings.TrimPrefix(u.ID(), headerPrefix)] = u.Target()
		}
	}
	s.UpdateHeader(fields)
}
