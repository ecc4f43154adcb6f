package format

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// FormatProperties identifies the Java-style properties adapter: one
// "key=value" pair per line, "#" comments, and a "# fuzzy" comment line
// immediately before an entry marking it as needing review.
const FormatProperties = "properties"

const fuzzyMarker = "# fuzzy"

type propEntry struct {
	key      string
	value    string
	comments []string
	fuzzy    bool
}

func (e *propEntry) ID() string      { return e.key }
func (e *propEntry) Context() string { return e.key }
func (e *propEntry) Source() string  { return e.value }
func (e *propEntry) Sources() []string {
	return []string{e.value}
}
func (e *propEntry) Target() string { return e.value }
func (e *propEntry) Targets() []string {
	return []string{e.value}
}
func (e *propEntry) SetTarget(text string) { e.value = text }
func (e *propEntry) SetTargets(texts []string) {
	if len(texts) > 0 {
		e.value = texts[0]
	}
}
func (e *propEntry) IsFuzzy() bool        { return e.fuzzy }
func (e *propEntry) MarkFuzzy(fuzzy bool) { e.fuzzy = fuzzy }
func (e *propEntry) IsTranslated() bool   { return e.value != "" && !e.fuzzy }
func (e *propEntry) IsTranslatable() bool { return true }
func (e *propEntry) IsHeader() bool       { return false }

type propStore struct {
	path    string
	entries []*propEntry
}

func openProperties(path string, data []byte) (Store, error) {
	if data == nil {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	entries, err := parseProperties(data)
	if err != nil {
		return nil, err
	}
	return &propStore{path: path, entries: entries}, nil
}

func parseProperties(data []byte) ([]*propEntry, error) {
	var entries []*propEntry
	var pendingComments []string
	pendingFuzzy := false

	for lineNo, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			if trimmed == fuzzyMarker {
				pendingFuzzy = true
			} else {
				pendingComments = append(pendingComments, trimmed)
			}
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("properties: line %d: missing '='", lineNo+1)
		}
		key := strings.TrimSpace(line[:eq])
		if key == "" {
			return nil, fmt.Errorf("properties: line %d: empty key", lineNo+1)
		}
		entries = append(entries, &propEntry{
			key:      key,
			value:    unescapeProp(line[eq+1:]),
			comments: pendingComments,
			fuzzy:    pendingFuzzy,
		})
		pendingComments = nil
		pendingFuzzy = false
	}
	return entries, nil
}

func (s *propStore) Units() []Unit {
	out := make([]Unit, len(s.entries))
	for i, e := range s.entries {
		out[i] = e
	}
	return out
}

func (s *propStore) FindID(id string) Unit {
	for _, e := range s.entries {
		if e.key == id {
			return e
		}
	}
	return nil
}

func (s *propStore) FindSource(text string) []Unit {
	var out []Unit
	for _, e := range s.entries {
		if e.value == text {
			out = append(out, e)
		}
	}
	return out
}

func (s *propStore) Add(u Unit) (Unit, error) {
	if s.FindID(u.ID()) != nil {
		return nil, fmt.Errorf("properties: duplicate key %q", u.ID())
	}
	e := &propEntry{key: u.ID()}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *propStore) Save() error {
	if s.path == "" {
		return ErrReadOnly
	}
	var buf bytes.Buffer
	for _, e := range s.entries {
		for _, c := range e.comments {
			buf.WriteString(c)
			buf.WriteString("\n")
		}
		if e.fuzzy {
			buf.WriteString(fuzzyMarker)
			buf.WriteString("\n")
		}
		buf.WriteString(e.key)
		buf.WriteString("=")
		buf.WriteString(escapeProp(e.value))
		buf.WriteString("\n")
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}

func (s *propStore) Format() string            { return FormatProperties }
func (s *propStore) RequiresExplicitAdd() bool { return false }

func escapeProp(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

func unescapeProp(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
