package domain

import (
	"strings"
	"testing"
	"time"
)

func TestChecksum_StableAcrossTargetChanges(t *testing.T) {
	a := Checksum("Hello", "greeting")
	b := Checksum("Hello", "greeting")
	if a != b {
		t.Fatalf("checksum not deterministic: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d (%q)", len(a), a)
	}
}

func TestChecksum_ChangesWithSourceOrContext(t *testing.T) {
	base := Checksum("Hello", "greeting")
	if Checksum("Hello!", "greeting") == base {
		t.Fatal("source change must produce a new checksum")
	}
	if Checksum("Hello", "farewell") == base {
		t.Fatal("context change must produce a new checksum")
	}
}

func TestTranslation_Percentages(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		translated int64
		fuzzy      int64
		wantTrans  float64
		wantFuzzy  float64
	}{
		{"empty", 0, 0, 0, 0, 0},
		{"third", 3, 1, 1, 33.3, 33.3},
		{"full", 4, 4, 0, 100, 0},
		{"two thirds", 3, 2, 0, 66.7, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := Translation{Total: tc.total, Translated: tc.translated, Fuzzy: tc.fuzzy}
			if got := tr.TranslatedPercent(); got != tc.wantTrans {
				t.Errorf("TranslatedPercent = %v, want %v", got, tc.wantTrans)
			}
			if got := tr.FuzzyPercent(); got != tc.wantFuzzy {
				t.Errorf("FuzzyPercent = %v, want %v", got, tc.wantFuzzy)
			}
		})
	}
}

func TestTranslation_Untranslated(t *testing.T) {
	tr := Translation{Total: 10, Translated: 7}
	if got := tr.Untranslated(); got != 3 {
		t.Fatalf("Untranslated = %d, want 3", got)
	}
}

func TestUnit_Plurals(t *testing.T) {
	u := Unit{
		Source: strings.Join([]string{"%d file", "%d files"}, PluralSeparator),
		Target: "%d Datei" + PluralSeparator + "%d Dateien",
	}
	if !u.IsPlural() {
		t.Fatal("expected plural unit")
	}
	if got := u.SourcePlurals(); len(got) != 2 || got[1] != "%d files" {
		t.Fatalf("SourcePlurals = %v", got)
	}
	if got := u.TargetPlurals(); len(got) != 2 || got[0] != "%d Datei" {
		t.Fatalf("TargetPlurals = %v", got)
	}

	single := Unit{Source: "Save", Target: "Speichern"}
	if single.IsPlural() {
		t.Fatal("single form reported as plural")
	}
	if got := single.SourcePlurals(); len(got) != 1 || got[0] != "Save" {
		t.Fatalf("SourcePlurals = %v", got)
	}
}

func TestChange_ContentActions(t *testing.T) {
	// Sanity-check the action constants used by the lazy-commit author lookup.
	for _, a := range []string{ActionSave, ActionUpload, ActionSuggestion} {
		if a == ActionSync {
			t.Fatalf("content action %q collides with sync", a)
		}
	}
	c := Change{Action: ActionSave, Actor: "alice", CreatedAt: time.Now()}
	if c.Action != "save" {
		t.Fatalf("ActionSave = %q", c.Action)
	}
}
