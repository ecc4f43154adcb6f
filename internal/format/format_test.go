package format

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRegistry_OpenFlatJSON(t *testing.T) {
	path := writeFile(t, "de.json", `{
	"@@language": "de",
	"greeting": "Hallo",
	"farewell": ""
}`)
	st, err := NewRegistry().Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st.Format() != FormatFlatJSON {
		t.Fatalf("Format = %q", st.Format())
	}
	units := st.Units()
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	if !units[0].IsHeader() || units[0].IsTranslatable() {
		t.Fatal("@@language should be a non-translatable header")
	}
	if u := st.FindID("greeting"); u == nil || u.Target() != "Hallo" {
		t.Fatalf("FindID(greeting) = %v", u)
	}
	if u := st.FindID("farewell"); u == nil || u.IsTranslated() {
		t.Fatal("empty value must not count as translated")
	}
	if got := st.FindSource("Hallo"); len(got) != 1 {
		t.Fatalf("FindSource = %d matches", len(got))
	}
}

func TestRegistry_OpenProperties(t *testing.T) {
	path := writeFile(t, "de.properties", strings.Join([]string{
		"# app strings",
		"greeting=Hallo",
		"# fuzzy",
		"farewell=Tschuess",
		"empty=",
	}, "\n"))
	st, err := NewRegistry().Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st.Format() != FormatProperties {
		t.Fatalf("Format = %q", st.Format())
	}
	u := st.FindID("farewell")
	if u == nil || !u.IsFuzzy() {
		t.Fatal("fuzzy marker not honored")
	}
	if u.IsTranslated() {
		t.Fatal("fuzzy entry must not count as translated")
	}
	if st.FindID("greeting").IsFuzzy() {
		t.Fatal("greeting wrongly fuzzy")
	}
}

func TestRegistry_GuessFallsBackAcrossFormats(t *testing.T) {
	// Properties content under a misleading extension: the extension guess
	// fails to parse, the fallback loop succeeds.
	path := writeFile(t, "strings.json", "greeting=Hallo\n")
	st, err := NewRegistry().Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st.Format() != FormatProperties {
		t.Fatalf("expected properties fallback, got %q", st.Format())
	}
}

func TestRegistry_OpenBytes_ReadOnly(t *testing.T) {
	st, err := NewRegistry().OpenBytes([]byte(`{"a": "b"}`), "")
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if err := st.Save(); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Save on byte store = %v, want ErrReadOnly", err)
	}
}

func TestRegistry_Unparseable(t *testing.T) {
	_, err := NewRegistry().OpenBytes([]byte("{\x00not anything"), "")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestFlatJSON_SaveRoundTrip(t *testing.T) {
	path := writeFile(t, "de.json", `{"greeting": "Hallo", "farewell": ""}`)
	reg := NewRegistry()
	st, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.FindID("farewell").SetTarget("Tschüss")
	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.FindID("farewell").Target(); got != "Tschüss" {
		t.Fatalf("after round trip: %q", got)
	}
	// Order must be preserved.
	units := again.Units()
	if units[0].ID() != "greeting" || units[1].ID() != "farewell" {
		t.Fatalf("key order lost: %q, %q", units[0].ID(), units[1].ID())
	}
}

func TestFlatJSON_AddAndHeader(t *testing.T) {
	path := writeFile(t, "de.json", `{"greeting": "Hallo"}`)
	reg := NewRegistry()
	st, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !st.RequiresExplicitAdd() {
		t.Fatal("flat json must require explicit add")
	}

	tmpl, err := reg.OpenBytes([]byte(`{"farewell": "Goodbye"}`), "")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	added, err := st.Add(tmpl.FindID("farewell"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	added.SetTarget("Tschüss")

	hu, ok := st.(HeaderUpdater)
	if !ok {
		t.Fatal("flat json store must support header updates")
	}
	hu.UpdateHeader(map[string]string{"last_translator": "alice"})

	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.FindID("farewell"); got == nil || got.Target() != "Tschüss" {
		t.Fatalf("added entry lost: %v", got)
	}
	if got := again.FindID("@@last_translator"); got == nil || got.Target() != "alice" {
		t.Fatalf("header lost: %v", got)
	}
}

func TestProperties_SavePersistsFuzzy(t *testing.T) {
	path := writeFile(t, "de.properties", "greeting=Hallo\n")
	reg := NewRegistry()
	st, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.FindID("greeting").MarkFuzzy(true)
	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := reg.Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !again.FindID("greeting").IsFuzzy() {
		t.Fatal("fuzzy marker not persisted")
	}
}

func TestProperties_EscapeRoundTrip(t *testing.T) {
	path := writeFile(t, "x.properties", "multiline=a\\nb\\tc\\\\d\n")
	st, err := NewRegistry().Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := "a\nb\tc\\d"
	if got := st.FindID("multiline").Target(); got != want {
		t.Fatalf("unescape = %q, want %q", got, want)
	}
	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, _ := NewRegistry().Open(path, "")
	if got := again.FindID("multiline").Target(); got != want {
		t.Fatalf("round trip = %q, want %q", got, want)
	}
}
