package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/gitrepo"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

func TestCommitCleanFile(t *testing.T) {
	e := newEnv(t, true)
	tr := e.reload(t)

	committed, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{Force: true})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed {
		t.Fatal("clean file must not commit")
	}
	if len(e.gw.Commits()) != 0 {
		t.Fatal("unexpected commit recorded")
	}
}

func TestCommitLazyDefers(t *testing.T) {
	e := newEnv(t, true)
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)

	committed, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed {
		t.Fatal("lazy mode must defer unforced commits")
	}

	// Repeated unforced attempts still produce zero commits.
	for i := 0; i < 3; i++ {
		if _, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{}); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	if len(e.gw.Commits()) != 0 {
		t.Fatal("lazy mode committed anyway")
	}

	// One forced call captures the accumulated edits in exactly one commit.
	committed, err = e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{Force: true})
	if err != nil {
		t.Fatalf("Commit force: %v", err)
	}
	if !committed || len(e.gw.Commits()) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(e.gw.Commits()))
	}
}

func TestCommitMessageAndCommitter(t *testing.T) {
	e := newEnv(t, false)
	tr := e.reload(t)
	tr.Total = 4
	tr.Translated = 3
	e.gw.setDirty("cs.json", true)

	committed, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !committed {
		t.Fatal("non-lazy dirty commit must proceed")
	}

	commits := e.gw.Commits()
	if len(commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(commits))
	}
	c := commits[0]
	if c.Path != "cs.json" {
		t.Errorf("committed path %q", c.Path)
	}
	if want := "Translated using Demo (Czech, 75.0%)"; c.Message != want {
		t.Errorf("message = %q, want %q", c.Message, want)
	}
	if !strings.Contains(c.Author, "alice") {
		t.Errorf("author = %q", c.Author)
	}
	if e.gw.name != "Demo Committer" || e.gw.email != "commit@example.com" {
		t.Errorf("committer identity not enforced: %q <%s>", e.gw.name, e.gw.email)
	}
}

func TestCommitSyncRevision(t *testing.T) {
	e := newEnv(t, false)
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)
	e.gw.setBlob("en.json", "e1")

	if _, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{SyncRevision: true}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	fresh := e.reload(t)
	if fresh.Revision != "rev1,e1" {
		t.Errorf("revision = %q, want rev1,e1", fresh.Revision)
	}
}

func TestCommitRetriesOnceOnBusy(t *testing.T) {
	e := newEnv(t, false)
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)
	e.gw.busyLeft = 1

	var slept int
	e.commits.Sleep = func(time.Duration) { slept++ }

	committed, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !committed || slept != 1 {
		t.Fatalf("expected one retry after sleep, committed=%v slept=%d", committed, slept)
	}
}

func TestCommitBusyTwicePropagates(t *testing.T) {
	e := newEnv(t, false)
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)
	e.gw.busyLeft = 2

	_, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{})
	if !errors.Is(err, gitrepo.ErrRepoBusy) {
		t.Fatalf("expected ErrRepoBusy after second failure, got %v", err)
	}
}

func TestCommitPendingSweepsPriorAuthor(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)

	if err := repo.RecordChange(ctx, e.db, tr.ID, domain.ActionSave, "alice"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	committed, err := e.commits.CommitPending(ctx, tr, "bob")
	if err != nil {
		t.Fatalf("CommitPending: %v", err)
	}
	if !committed {
		t.Fatal("pending edits by another author must be swept")
	}
	commits := e.gw.Commits()
	if len(commits) != 1 || !strings.Contains(commits[0].Author, "alice") {
		t.Fatalf("commit must be attributed to the prior author, got %+v", commits)
	}
}

func TestCommitPendingSameAuthorNoop(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)

	if err := repo.RecordChange(ctx, e.db, tr.ID, domain.ActionSave, "alice"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	committed, err := e.commits.CommitPending(ctx, tr, "alice")
	if err != nil {
		t.Fatalf("CommitPending: %v", err)
	}
	if committed || len(e.gw.Commits()) != 0 {
		t.Fatal("same author's pending edits keep accumulating")
	}
}

func TestCommitPushOnCommit(t *testing.T) {
	e := newEnv(t, false)
	if err := e.db.Model(&domain.Project{}).Where("id = ?", e.project.ID).
		Update("push_on_commit", true).Error; err != nil {
		t.Fatalf("update project: %v", err)
	}
	tr := e.reload(t)
	e.gw.setDirty("cs.json", true)

	if _, err := e.commits.Commit(context.Background(), tr, "alice", time.Now(), CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case <-e.gw.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("push-on-commit never pushed")
	}
}
