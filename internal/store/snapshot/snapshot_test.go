package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

const fixtureConversation = "6f1c2a9e-3b4d-4c8e-9a1f-2d7e5b8c0a11"

func TestSourceServesSnapshot(t *testing.T) {
	src, err := Open(filepath.Join("testdata", "snapshot.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := src.ConversationIDs()
	if len(ids) != 1 || ids[0] != fixtureConversation {
		t.Fatalf("unexpected conversations: %v", ids)
	}

	ctx := context.Background()
	entities, err := src.Entities(ctx, fixtureConversation)
	if err != nil || len(entities) != 6 {
		t.Fatalf("unexpected entities: %v, %v", entities, err)
	}

	convCtx, err := src.Context(ctx, fixtureConversation)
	if err != nil || convCtx == nil || convCtx.TargetPerson.Education[0].School != "ETH Zurich" {
		t.Fatalf("unexpected context: %+v, %v", convCtx, err)
	}

	vector, err := src.ConversationEmbedding(ctx, fixtureConversation)
	if err != nil || vector != nil {
		t.Fatalf("expected absent embedding, got %v, %v", vector, err)
	}

	contacts, err := src.Contacts(ctx, fixtureConversation)
	if err != nil || len(contacts) != 3 {
		t.Fatalf("unexpected contacts: %v, %v", contacts, err)
	}

	if _, err := src.Entities(ctx, "missing"); !errors.Is(err, suggest.ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}
}

func TestOpenRejectsMalformedFiles(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"conversations": [{"entities": []}]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(bad); err == nil {
		t.Fatal("expected error for conversation without id")
	}

	if _, err := Open(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSnapshotRunWritesResults(t *testing.T) {
	src, err := Open(filepath.Join("testdata", "snapshot.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "results.json")
	results, err := OpenResults(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc, err := suggest.NewService(suggest.Config{}, suggest.Deps{Source: src, Store: results, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := svc.Run(context.Background(), fixtureConversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Persisted != 2 {
		t.Fatalf("expected 2 persisted suggestions, got %d (%+v)", report.Persisted, report.Candidates)
	}
	if err := results.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reopened, err := OpenResults(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	records := reopened.Records()
	if len(records) != 2 || records[0].ContactID != "a1" || records[1].ContactID != "a2" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].Score != 3 || records[0].Status != suggest.StatusPending {
		t.Fatalf("unexpected top record: %+v", records[0])
	}

	// a second run replaces rows instead of duplicating them
	rerun, err := suggest.NewService(suggest.Config{}, suggest.Deps{Source: src, Store: reopened})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := rerun.Run(context.Background(), fixtureConversation); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if got := len(reopened.Records()); got != 2 {
		t.Fatalf("expected overwrite semantics, got %d records", got)
	}
}
