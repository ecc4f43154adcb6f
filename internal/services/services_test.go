package services

// Shared fixtures and fakes for the service tests: a real sqlite database
// in a temp dir, real translation files on disk, and an in-memory fake of
// the repository gateway.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/cache"
	"github.com/tbourn/go-translate-backend/internal/checks"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/format"
	"github.com/tbourn/go-translate-backend/internal/gitrepo"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

type fakeCommit struct {
	Path    string
	Author  string
	When    time.Time
	Message string
}

// fakeGateway implements Gateway in memory. Blob hashes and dirty flags are
// set directly by tests; commits mark the path clean and bump its hash.
type fakeGateway struct {
	mu        sync.Mutex
	root      string
	blobs     map[string]string
	dirty     map[string]bool
	commits   []fakeCommit
	busyLeft  int
	name      string
	email     string
	pushed    chan struct{}
	lock      sync.Mutex
	commitSeq int
}

func newFakeGateway(root string) *fakeGateway {
	return &fakeGateway{
		root:   root,
		blobs:  make(map[string]string),
		dirty:  make(map[string]bool),
		pushed: make(chan struct{}, 8),
	}
}

func (g *fakeGateway) Root() string { return g.root }

func (g *fakeGateway) WithWriteLock(fn func() error) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	return fn()
}

func (g *fakeGateway) BlobHash(_ context.Context, path string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blobs[path], nil
}

func (g *fakeGateway) IsDirty(_ context.Context, path string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dirty[path], nil
}

func (g *fakeGateway) EnsureCommitter(_ context.Context, name, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name, g.email = name, email
	return nil
}

func (g *fakeGateway) Commit(_ context.Context, path, author string, when time.Time, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busyLeft > 0 {
		g.busyLeft--
		return gitrepo.ErrRepoBusy
	}
	g.commits = append(g.commits, fakeCommit{Path: path, Author: author, When: when, Message: message})
	g.dirty[path] = false
	g.commitSeq++
	g.blobs[path] = fmt.Sprintf("rev%d", g.commitSeq)
	return nil
}

func (g *fakeGateway) Push(context.Context) error {
	g.pushed <- struct{}{}
	return nil
}

func (g *fakeGateway) Commits() []fakeCommit {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]fakeCommit, len(g.commits))
	copy(out, g.commits)
	return out
}

func (g *fakeGateway) setBlob(path, hash string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[path] = hash
}

func (g *fakeGateway) setDirty(path string, dirty bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty[path] = dirty
}

type fakeGateways struct{ g *fakeGateway }

func (f fakeGateways) Gateway(string) Gateway { return f.g }

// fakeNotifier collects new-string events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) NewString(_ context.Context, project, component, language, checksum string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, language+":"+checksum)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// env bundles a fully wired service stack over one component.
type env struct {
	db       *gorm.DB
	gw       *fakeGateway
	notifier *fakeNotifier
	cache    *cache.Cache

	locks   *LockService
	stats   *StatsService
	sync    *SyncService
	commits *CommitService
	merges  *MergeService
	units   *UnitService

	project     domain.Project
	component   domain.Component
	translation domain.Translation
}

// newEnv seeds a project with one component (template en.json) and one
// Czech translation, with real files under a temp repo root.
func newEnv(t *testing.T, lazy bool) *env {
	t.Helper()
	db := openTestDB(t)
	root := t.TempDir()

	e := &env{
		db:       db,
		gw:       newFakeGateway(root),
		notifier: &fakeNotifier{},
		cache:    cache.New(),
	}
	e.project = domain.Project{
		ID:             uuid.NewString(),
		Slug:           "demo",
		Name:           "Demo",
		CommitMessage:  "Translated using {project} ({language_name}, {translated_percent}%)",
		CommitterName:  "Demo Committer",
		CommitterEmail: "commit@example.com",
	}
	e.component = domain.Component{
		ID:               uuid.NewString(),
		ProjectID:        e.project.ID,
		Slug:             "app",
		Name:             "App",
		RepoPath:         root,
		FileMask:         "*.json",
		Template:         "en.json",
		FormatHint:       format.FormatFlatJSON,
		AllowPropagation: true,
	}
	e.translation = domain.Translation{
		ID:           uuid.NewString(),
		ComponentID:  e.component.ID,
		LanguageCode: "cs",
		LanguageName: "Czech",
		Filename:     "cs.json",
		Enabled:      true,
	}
	for _, m := range []any{&e.project, &e.component, &e.translation} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	log := zerolog.Nop()
	gws := fakeGateways{g: e.gw}
	e.locks = NewLockService(db, true, time.Minute, 15*time.Minute)
	e.stats = NewStatsService(db, e.cache)
	e.sync = NewSyncService(db, gws, format.NewRegistry(), checks.Default(), e.notifier, e.stats, log)
	e.commits = NewCommitService(db, gws, lazy, time.Millisecond, log)
	e.commits.Sleep = func(time.Duration) {}
	e.merges = NewMergeService(db, gws, format.NewRegistry(), e.commits, e.sync, e.cache, log)
	e.units = &UnitService{
		DB:       db,
		Gateways: gws,
		Formats:  format.NewRegistry(),
		Locks:    e.locks,
		Commits:  e.commits,
		Sync:     e.sync,
		Stats:    e.stats,
		Log:      log,
	}
	return e
}

// writeFile writes a file under the repo root and gives it a blob hash.
func (e *env) writeFile(t *testing.T, name, content, blob string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.gw.root, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	e.gw.setBlob(name, blob)
}

// reload fetches the translation fresh from the database.
func (e *env) reload(t *testing.T) *domain.Translation {
	t.Helper()
	tr, err := repo.GetTranslation(context.Background(), e.db, e.translation.ID)
	if err != nil {
		t.Fatalf("GetTranslation: %v", err)
	}
	return tr
}
