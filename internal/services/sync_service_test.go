package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

func TestReconcileCreatesUnits(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.writeFile(t, "en.json", `{"@@locale": "en", "hello": "Hello", "bye": "Goodbye"}`, "e1")
	e.writeFile(t, "cs.json", `{"@@locale": "cs", "hello": "Ahoj"}`, "c1")

	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	tr := e.reload(t)
	if tr.Revision != "c1,e1" {
		t.Errorf("revision = %q, want c1,e1", tr.Revision)
	}
	if tr.Total != 2 || tr.Translated != 1 || tr.Fuzzy != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/1/0", tr.Total, tr.Translated, tr.Fuzzy)
	}

	units, err := repo.ListUnits(ctx, e.db, tr.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	// Template order defines positions.
	if units[0].Source != "Hello" || units[0].Target != "Ahoj" || !units[0].Translated {
		t.Errorf("unexpected first unit: %+v", units[0])
	}
	if units[1].Source != "Goodbye" || units[1].Target != "" || units[1].Translated {
		t.Errorf("unexpected second unit: %+v", units[1])
	}

	// The brand-new untranslated string fires a notification.
	if e.notifier.count() == 0 {
		t.Error("expected a new-string notification")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.writeFile(t, "en.json", `{"hello": "Hello"}`, "e1")
	e.writeFile(t, "cs.json", `{"hello": "Ahoj"}`, "c1")

	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile again: %v", err)
	}

	changes, err := repo.ListChanges(ctx, e.db, e.translation.ID, 0)
	if err != nil {
		t.Fatalf("ListChanges: %v", err)
	}
	// The matched-revision path writes nothing, not even an audit row.
	if len(changes) != 1 {
		t.Fatalf("expected 1 sync audit row, got %d", len(changes))
	}
}

func TestReconcileChecksumStability(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.writeFile(t, "en.json", `{"hello": "Hello"}`, "e1")
	e.writeFile(t, "cs.json", `{"hello": "Ahoj"}`, "c1")

	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	before, err := repo.ListUnits(ctx, e.db, e.translation.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}

	// A target edit must keep identity; the unit row is updated in place.
	e.writeFile(t, "cs.json", `{"hello": "Nazdar"}`, "c2")
	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	after, err := repo.ListUnits(ctx, e.db, e.translation.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if after[0].ID != before[0].ID || after[0].Checksum != before[0].Checksum {
		t.Fatalf("target edit changed unit identity: %+v vs %+v", before[0], after[0])
	}
	if after[0].Target != "Nazdar" {
		t.Fatalf("target not refreshed: %q", after[0].Target)
	}

	// A source edit mints a new identity.
	e.writeFile(t, "en.json", `{"hello": "Hello!"}`, "e2")
	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	final, err := repo.ListUnits(ctx, e.db, e.translation.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if final[0].Checksum == before[0].Checksum {
		t.Fatal("source edit must produce a new checksum")
	}
}

func TestReconcileSweepsDeletedAndCleansDependents(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.writeFile(t, "en.json", `{"hello": "Hello", "bye": "Goodbye"}`, "e1")
	e.writeFile(t, "cs.json", `{"hello": "Ahoj", "bye": "Nashle"}`, "c1")

	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	byeSum := domain.Checksum("Goodbye", "bye")
	if err := repo.CreateSuggestion(ctx, e.db, &domain.Suggestion{
		ProjectID: e.project.ID, LanguageCode: "cs", Checksum: byeSum,
		Target: "Sbohem", Actor: "alice",
	}); err != nil {
		t.Fatalf("CreateSuggestion: %v", err)
	}

	// Drop "bye" from the template; its unit and suggestion must go.
	e.writeFile(t, "en.json", `{"hello": "Hello"}`, "e2")
	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	units, err := repo.ListUnits(ctx, e.db, e.translation.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(units) != 1 || units[0].Source != "Hello" {
		t.Fatalf("stale unit not swept: %+v", units)
	}
	sugs, err := repo.ListSuggestions(ctx, e.db, e.project.ID, "cs", byeSum)
	if err != nil {
		t.Fatalf("ListSuggestions: %v", err)
	}
	if len(sugs) != 0 {
		t.Fatalf("orphaned suggestion survived: %+v", sugs)
	}

	tr := e.reload(t)
	if tr.Total != 1 {
		t.Fatalf("counts not recomputed, total=%d", tr.Total)
	}
}

func TestReconcileRecordsFailingChecks(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	// "App" translated identically fails the same check.
	e.writeFile(t, "en.json", `{"app": "App"}`, "e1")
	e.writeFile(t, "cs.json", `{"app": "App"}`, "c1")

	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	sum := domain.Checksum("App", "app")
	rows, err := repo.ListChecks(ctx, e.db, e.project.ID, "cs", sum)
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "same" {
		t.Fatalf("expected a failing same check, got %+v", rows)
	}

	// Fixing the translation clears the row on the next pass.
	e.writeFile(t, "cs.json", `{"app": "Aplikace"}`, "c2")
	if err := e.sync.Reconcile(ctx, e.translation.ID, "", false); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	rows, err = repo.ListChecks(ctx, e.db, e.project.ID, "cs", sum)
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("fixed check not cleared: %+v", rows)
	}
}

func TestReconcileMissingFile(t *testing.T) {
	e := newEnv(t, true)
	e.writeFile(t, "en.json", `{"hello": "Hello"}`, "e1")
	e.gw.setBlob("cs.json", "c1")

	err := e.sync.Reconcile(context.Background(), e.translation.ID, "", false)
	if !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestDiscoverTranslations(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	e.writeFile(t, "en.json", `{"hello": "Hello"}`, "e1")
	e.writeFile(t, "cs.json", `{"hello": "Ahoj"}`, "c1")
	e.writeFile(t, "de.json", `{"hello": "Hallo"}`, "d1")

	ids, err := e.sync.DiscoverTranslations(ctx, e.component.ID)
	if err != nil {
		t.Fatalf("DiscoverTranslations: %v", err)
	}
	// cs and de; the template file itself is not a translation.
	if len(ids) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(ids))
	}

	list, err := repo.ListTranslations(ctx, e.db, e.component.ID)
	if err != nil {
		t.Fatalf("ListTranslations: %v", err)
	}
	var german *string
	for i := range list {
		if list[i].LanguageCode == "de" {
			german = &list[i].LanguageName
		}
	}
	if german == nil {
		t.Fatal("german translation not discovered")
	}
	if *german != "German" {
		t.Errorf("language name = %q, want German", *german)
	}

	// Removing the file removes the row.
	if err := os.Remove(filepath.Join(e.gw.root, "de.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := e.sync.DiscoverTranslations(ctx, e.component.ID); err != nil {
		t.Fatalf("DiscoverTranslations: %v", err)
	}
	list, err = repo.ListTranslations(ctx, e.db, e.component.ID)
	if err != nil {
		t.Fatalf("ListTranslations: %v", err)
	}
	for _, tr := range list {
		if tr.LanguageCode == "de" {
			t.Fatal("vanished file's translation row survived")
		}
	}
}
